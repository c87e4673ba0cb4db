package reports

import "encoding/json"

// FormatDailyJSON formats a daily report as JSON.
func FormatDailyJSON(r *DailyReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FormatWeeklyJSON formats a weekly review as JSON.
func FormatWeeklyJSON(r *WeeklyReview) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
