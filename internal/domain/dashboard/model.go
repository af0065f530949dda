package dashboard

// Summary carries the counts shown on the panel's landing page.
type Summary struct {
	Patients          int `json:"patients"`
	AppointmentsToday int `json:"appointments_today"`
	WaitlistEntries   int `json:"waitlist_entries"`
	RecentMessages    int `json:"recent_messages"`
}
