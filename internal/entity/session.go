package entity

// Session is one participant's identity inside a match. Observers have Color Empty.
type Session struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        Stone  `json:"color"`
	ConnectionID string `json:"-"`
}

func (that Session) IsObserver() bool {
	return that.Color == Empty
}
