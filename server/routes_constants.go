package server

// Route path constants
const (
	RouteIndex    = "/"
	RouteCallback = "/signin_oidc"
	RouteLogout   = "/logout"
)
