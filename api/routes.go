package api

import "fmt"

// Backend route paths, relative to the base address
const (
	// Auth Routes
	RouteAuthToken    = "/auth/token/"
	RouteAuthRegister = "/auth/register/"
	RouteAuthRefresh  = "/auth/token/refresh/"

	// Resource Routes
	RouteClients    = "/clients/"
	RouteQuotations = "/quotations/"
	RouteReceipts   = "/receipts/"

	actionSendEmail = "send_email/"
)

func detailPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}

func actionPath(collection string, id int64, action string) string {
	return detailPath(collection, id) + action
}

// refreshable reports whether a 401 on path may be answered with a token refresh.
// The auth endpoints never are.
func refreshable(path string) bool {
	switch path {
	case RouteAuthToken, RouteAuthRegister, RouteAuthRefresh:
		return false
	}
	return true
}
