package platform

// Provider bundles all device backends for one connected target.
type Provider struct {
	Session Session
	Input   Input
	Watcher Watcher
	Screens Screens
}
