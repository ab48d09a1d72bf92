package slots

// Choice is one selectable slot. Text is for display; Value is the event's
// start exactly as Google returned it.
type Choice struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}
