package folders

// DefaultAccountColor is used for accounts with no assigned color.
const DefaultAccountColor = "#808080"

// ColorRegistry is the per-screen cache of account colors used to annotate
// folder rows. It is repopulated on every list build and patched in place on
// account-color-changed notifications.
type ColorRegistry struct {
	colors map[int64]string
}

func NewColorRegistry() *ColorRegistry {
	return &ColorRegistry{colors: make(map[int64]string)}
}

// Add registers a color for the account. An empty color is ignored so
// unconfigured accounts keep the default.
func (r *ColorRegistry) Add(accountID int64, color string) {
	if color == "" {
		return
	}
	r.colors[accountID] = color
}

// Update replaces the account's color.
func (r *ColorRegistry) Update(accountID int64, color string) {
	r.Add(accountID, color)
}

// Remove drops the account's entry.
func (r *ColorRegistry) Remove(accountID int64) {
	delete(r.colors, accountID)
}

// Get returns the account's color, falling back to DefaultAccountColor.
func (r *ColorRegistry) Get(accountID int64) string {
	if c, ok := r.colors[accountID]; ok {
		return c
	}
	return DefaultAccountColor
}

// All returns a copy of the registry contents, keyed by account id.
func (r *ColorRegistry) All() map[int64]string {
	out := make(map[int64]string, len(r.colors))
	for id, c := range r.colors {
		out[id] = c
	}
	return out
}
