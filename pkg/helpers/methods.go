package helpers

// Methods is a helper made of named callables. Template code reaches them
// as view.<helper>.<method>(...).
type Methods map[string]any

// Services groups the framework services a host application can expose to
// templates. Nil fields are skipped by Install.
type Services struct {
	Assets     *AssetPackage
	Router     Router
	Authorizer Authorizer
	CSRF       CSRFTokenManager
	Logout     LogoutURLGenerator
	Request    *RequestContext
	Session    SessionStore
	Translator Translator
}

// Install registers a helper for every service present in s. The css helper
// is only available alongside assets; http is always registered and falls
// back to an empty request context.
func Install(reg *Registry, s Services) {
	if s.Assets != nil {
		reg.Set("assets", Assets(s.Assets))
		reg.Set("css", CSS(s.Assets))
	}
	if s.Router != nil {
		reg.Set("router", Routing(s.Router))
	}
	if s.Authorizer != nil {
		reg.Set("security", Security(s.Authorizer))
	}
	if s.CSRF != nil {
		reg.Set("form", Form(s.CSRF))
	}
	if s.Logout != nil {
		reg.Set("logout", Logout(s.Logout))
	}
	if s.Session != nil {
		reg.Set("session", Session(s.Session))
	}
	if s.Translator != nil {
		reg.Set("translator", Translation(s.Translator))
	}

	request := s.Request
	if request == nil {
		request = &RequestContext{}
	}
	reg.Set("http", HTTP(request))
}
