package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const appointmentPage = `
<div class="info">
  <p><span>更新时间：</span>每日8:30更新</p>
  <p><span>预约周期：</span>7<script>renderDays()</script></p>
</div>`

const confirmationPage = `
<div class="list">
  <div class="personnel checked" name="100234">
    <i></i><span class="name">张三</span>
  </div>
  <div class="personnel" name="100567">
    <i></i><span class="name">李四</span>
  </div>
</div>`

func TestReleaseWindowFromPage(t *testing.T) {
	win, err := ReleaseWindowFromPage(appointmentPage)
	assert.NoError(t, err)
	assert.Equal(t, ReleaseWindow{RefreshHour: 8, RefreshMinute: 30, AppointDays: 7}, win)
}

func TestReleaseWindowFromPageFormatDrift(t *testing.T) {
	testCases := []struct {
		name string
		html string
		want string
	}{
		{"empty page", "", "daily refresh time"},
		{"missing window", `<span>更新时间：</span>每日15:00更新`, "booking window days"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReleaseWindowFromPage(tc.html)
			var parseErr *Error
			assert.ErrorAs(t, err, &parseErr)
			assert.Contains(t, parseErr.Error(), tc.want)
		})
	}
}

func TestPatientIDByName(t *testing.T) {
	id, err := PatientID(confirmationPage, "李四")
	assert.NoError(t, err)
	assert.Equal(t, "100567", id)
}

func TestPatientIDFirstEntryWhenUnnamed(t *testing.T) {
	id, err := PatientID(confirmationPage, "")
	assert.NoError(t, err)
	assert.Equal(t, "100234", id)
}

func TestPatientIDNotFound(t *testing.T) {
	_, err := PatientID(confirmationPage, "王五")
	var parseErr *Error
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "confirmation", parseErr.Page)
}
