package viewers

import (
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type ID string

func NewID() ID {
	return ID(gonanoid.Must())
}

// Viewer is one browser looking at the console.
type Viewer struct {
	ID ID
}

func FromCookies(cookies []*http.Cookie) (*Viewer, bool) {
	v := &Viewer{}
	for _, cookie := range cookies {
		switch cookie.Name {
		case "viewer_id":
			v.ID = ID(cookie.Value)
		}
	}
	if len(v.ID) == 0 {
		return nil, false
	}
	return v, true
}

var (
	minute = time.Second * 60
	hour   = minute * 60
	day    = hour * 24
)

func (v Viewer) ToCookies(secure bool) []*http.Cookie {
	return []*http.Cookie{
		{
			Name:     "viewer_id",
			Value:    string(v.ID),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(30 * day),
			Secure:   secure,
		},
	}
}
