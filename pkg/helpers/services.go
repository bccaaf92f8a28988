package helpers

// Authorizer decides whether the current user holds an attribute (a role or
// permission).
type Authorizer interface {
	IsGranted(attribute string) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(attribute string) bool

// IsGranted implements Authorizer.
func (f AuthorizerFunc) IsGranted(attribute string) bool { return f(attribute) }

// CSRFTokenManager issues CSRF tokens per intention.
type CSRFTokenManager interface {
	Token(intention string) string
}

// CSRFTokenFunc adapts a function to CSRFTokenManager.
type CSRFTokenFunc func(intention string) string

// Token implements CSRFTokenManager.
func (f CSRFTokenFunc) Token(intention string) string { return f(intention) }

// LogoutURLGenerator builds logout links for a firewall key. An empty key
// selects the current firewall.
type LogoutURLGenerator interface {
	LogoutURL(key string) string
	LogoutPath(key string) string
}

// SessionStore reads values from the current session.
type SessionStore interface {
	Get(name string) (any, bool)
}

// Translator translates message identifiers.
type Translator interface {
	Translate(id string) string
}

// Security exposes isGranted.
func Security(a Authorizer) Methods {
	return Methods{
		"isGranted": a.IsGranted,
	}
}

// Form exposes csrfToken.
func Form(m CSRFTokenManager) Methods {
	return Methods{
		"csrfToken": m.Token,
	}
}

// Logout exposes url and path; both take an optional firewall key.
func Logout(g LogoutURLGenerator) Methods {
	return Methods{
		"url": func(key ...string) string {
			return g.LogoutURL(firstOrEmpty(key))
		},
		"path": func(key ...string) string {
			return g.LogoutPath(firstOrEmpty(key))
		},
	}
}

// Session exposes get (with an optional default) and has.
func Session(s SessionStore) Methods {
	return Methods{
		"get": func(name string, fallback ...any) any {
			if value, ok := s.Get(name); ok {
				return value
			}
			if len(fallback) > 0 {
				return fallback[0]
			}
			return nil
		},
		"has": func(name string) bool {
			_, ok := s.Get(name)
			return ok
		},
	}
}

// Translation exposes trans.
func Translation(t Translator) Methods {
	return Methods{
		"trans": t.Translate,
	}
}

// MapSession is a SessionStore over a plain map.
type MapSession map[string]any

// Get implements SessionStore.
func (m MapSession) Get(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}

// Catalog is a Translator over a message map; unknown ids translate to
// themselves.
type Catalog map[string]string

// Translate implements Translator.
func (c Catalog) Translate(id string) string {
	if message, ok := c[id]; ok {
		return message
	}
	return id
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
