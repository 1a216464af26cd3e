package locate

// Monitored application packages. The host app shows the incoming connection
// dialog; the cast companion owns the screen-share flow.
const (
	HostPackage = "com.remoteview.host"
	CastPackage = "com.remoteview.cast"
)

// Role names used by the flow steps.
const (
	RoleAccept       = "accept-button"
	RoleModeSpinner  = "mode-spinner"
	RoleEntireScreen = "entire-screen-option"
	RoleConfirm      = "confirm-button"
)

// Roles is the role table: per semantic target, the captions accepted across
// known app versions and the ordered strategies to find it. Identifiers and
// captions here have been observed to vary between releases; adding a
// variant means adding a table entry.
var Roles = map[string]Role{
	RoleAccept: {
		Name:            RoleAccept,
		Captions:        []string{"Accept", "Allow", "Connect"},
		AllowEscalation: true,
		Strategies: []Strategy{
			{Kind: ByID, Pattern: HostPackage + ":id/accept"},
			{Kind: ByID, Pattern: HostPackage + ":id/btn_accept"},
			{Kind: ByText},
			{Kind: ByPredicate, Pattern: "Button"},
		},
	},
	RoleModeSpinner: {
		Name:     RoleModeSpinner,
		Captions: []string{"Entire screen", "Share entire screen", "App window", "Single app"},
		Strategies: []Strategy{
			{Kind: ByID, Pattern: CastPackage + ":id/share_mode"},
			{Kind: ByText},
			{Kind: ByPredicate, Pattern: "Spinner"},
		},
	},
	RoleEntireScreen: {
		Name:     RoleEntireScreen,
		Captions: []string{"Share entire screen", "Entire screen", "Whole screen"},
		Strategies: []Strategy{
			{Kind: ByID, Pattern: "android:id/text1"},
			{Kind: ByText},
			{Kind: ByPredicate, Pattern: "CheckedTextView"},
		},
	},
	RoleConfirm: {
		Name:            RoleConfirm,
		Captions:        []string{"Share screen", "Start now", "Start sharing", "Start"},
		AllowEscalation: true,
		Strategies: []Strategy{
			{Kind: ByID, Pattern: "android:id/button1"},
			{Kind: ByID, Pattern: CastPackage + ":id/start_share"},
			{Kind: ByText},
			{Kind: ByPredicate, Pattern: "Button"},
		},
	},
}
