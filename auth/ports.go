package auth

// Routes the navigator is pointed at by the exchange protocol.
const (
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
)

// Notifier receives human-readable outcome messages. Host applications plug
// in their toast/alert layer; server-rejected outcomes and the unverified
// branch always produce a notification, transport failures never do.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

// Navigator receives navigation requests after commits and logouts.
type Navigator interface {
	NavigateTo(path string)
}

// NopNotifier discards all messages.
type NopNotifier struct{}

func (NopNotifier) Success(string, string) {}
func (NopNotifier) Error(string, string)   {}

// NopNavigator ignores navigation requests.
type NopNavigator struct{}

func (NopNavigator) NavigateTo(string) {}
