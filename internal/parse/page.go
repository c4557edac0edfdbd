// Package parse extracts typed facts from the scheduling service's rendered
// pages. Each page type gets one named extractor; format drift surfaces as a
// *Error instead of a silent zero value.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	refreshTimeRe = regexp.MustCompile(`<span>更新时间：</span>每日(\d{1,2}):(\d{2})更新`)
	appointDayRe  = regexp.MustCompile(`<span>预约周期：</span>(\d+)<script`)
	personnelRe   = regexp.MustCompile(`(?s)<div class="personnel[^"]*" name="(\d+)">.*?<span class="name">([^<]*)</span>`)
)

// Error reports that an expected fact could not be located in a page,
// usually meaning the upstream page format changed.
type Error struct {
	Page string
	Want string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse %s page: %s not found", e.Page, e.Want)
}

// ReleaseWindow is the service-published release schedule: slots for a day
// refresh at RefreshHour:RefreshMinute, AppointDays days in advance.
type ReleaseWindow struct {
	RefreshHour   int
	RefreshMinute int
	AppointDays   int
}

// ReleaseWindowFromPage extracts the release window from the department's
// appointment-info page.
func ReleaseWindowFromPage(html string) (ReleaseWindow, error) {
	m := refreshTimeRe.FindStringSubmatch(html)
	if m == nil {
		return ReleaseWindow{}, &Error{Page: "appointment", Want: "daily refresh time"}
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	m = appointDayRe.FindStringSubmatch(html)
	if m == nil {
		return ReleaseWindow{}, &Error{Page: "appointment", Want: "booking window days"}
	}
	days, _ := strconv.Atoi(m[1])

	return ReleaseWindow{RefreshHour: hour, RefreshMinute: minute, AppointDays: days}, nil
}

// PatientID extracts the acting patient's identifier from the confirmation
// page. With a non-empty patientName the personnel entry must carry that
// name; otherwise the first personnel entry wins.
func PatientID(html, patientName string) (string, error) {
	for _, m := range personnelRe.FindAllStringSubmatch(html, -1) {
		if patientName == "" || m[2] == patientName {
			return m[1], nil
		}
	}
	return "", &Error{Page: "confirmation", Want: "patient id"}
}
