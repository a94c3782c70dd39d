package app

import (
	"net/url"

	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/internal/model"
)

// Deep link query parameters.
const (
	DeepLinkItem = "item"
	DeepLinkUser = "user"
)

// A DeepLink is the result of a resolved link.
type DeepLink struct {
	// Item is the media opened in the viewer.
	Item *model.MediaItem `json:"item,omitempty"`
	// Profile is the profile to display.
	Profile *Profile `json:"profile,omitempty"`
	// Query is the remaining query once the deep link parameters are stripped.
	Query string `json:"query"`
}

// ResolveDeepLink handles the item and user parameters of the given query.
// Unknown targets are ignored. Both parameters are always stripped.
func (a *App) ResolveDeepLink(rawQuery string) (_ DeepLink, err error) {
	defer a.report(&err)

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return DeepLink{}, apperror.New(apperror.ValidationError, "Invalid link.")
	}

	var link DeepLink

	if id := query.Get(DeepLinkItem); id != "" {
		a.mu.Lock()
		if i, _, err := a.find(id); err == nil {
			link.Item, _ = a.openItem(i)
		}
		a.mu.Unlock()
	}

	if email := query.Get(DeepLinkUser); email != "" {
		if profile, err := a.FindProfile(email); err == nil {
			link.Profile = profile
		}
	}

	query.Del(DeepLinkItem)
	query.Del(DeepLinkUser)
	link.Query = query.Encode()
	return link, nil
}
