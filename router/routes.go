package router

// Client-side route paths
const (
	// Public Routes
	RouteLogin      = "/"
	RouteLoginAlias = "/login"

	// Protected Routes
	RouteDashboard  = "/dashboard"
	RouteClients    = "/clients"
	RouteQuotations = "/quotations"
	RouteItems      = "/items"
	RouteReceipts   = "/receipts"
)

var publicRoutes = map[string]bool{
	RouteLogin: true,
}

// aliases redirect unconditionally before the guard runs
var aliases = map[string]string{
	RouteLoginAlias: RouteLogin,
}

var knownRoutes = map[string]bool{
	RouteLogin:      true,
	RouteLoginAlias: true,
	RouteDashboard:  true,
	RouteClients:    true,
	RouteQuotations: true,
	RouteItems:      true,
	RouteReceipts:   true,
}
