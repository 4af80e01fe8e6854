package domain

// UserMask is an alternate identity the user presents to the assistant.
type UserMask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserProfile is the device owner's profile.
type UserProfile struct {
	Name         string     `json:"name"`
	WechatID     string     `json:"wechatId"`
	Avatar       string     `json:"avatar"`
	Balance      float64    `json:"balance"`
	Masks        []UserMask `json:"masks"`
	ActiveMaskID *string    `json:"activeMaskId"`
}

// ActiveMask returns the active mask, or nil if none is selected or the
// pointer no longer resolves.
func (p *UserProfile) ActiveMask() *UserMask {
	if p.ActiveMaskID == nil {
		return nil
	}
	for i := range p.Masks {
		if p.Masks[i].ID == *p.ActiveMaskID {
			return &p.Masks[i]
		}
	}
	return nil
}

// FindMask returns the index of the mask with the given id, or -1.
func (p *UserProfile) FindMask(id string) int {
	for i := range p.Masks {
		if p.Masks[i].ID == id {
			return i
		}
	}
	return -1
}
