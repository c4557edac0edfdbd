package booking

// Slot is one bookable doctor offering as listed by the scheduling service.
// A fresh poll yields a fresh ordered sequence; the service lists
// higher-ranked doctors later in the raw order.
type Slot struct {
	DoctorID     int64   `json:"doctorId"`
	DoctorName   string  `json:"doctorName"`
	Skill        string  `json:"skill"`
	TotalFee     float64 `json:"totalFee"`
	Remain       int     `json:"remainAvailableNumber"`
	DutySourceID int64   `json:"dutySourceId"`
}

// Available reports whether the slot still has capacity.
func (s Slot) Available() bool {
	return s.Remain > 0
}
