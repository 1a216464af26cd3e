package detect

import "github.com/mj1618/autoshare/internal/locate"

// acceptCaptions and rejectCaptions mirror the locator's role table; the
// paired-controls probe is the strongest incoming-dialog signal because
// unrelated screens rarely show both at once.
var (
	acceptCaptions = []string{"Accept", "Allow", "Connect"}
	rejectCaptions = []string{"Dismiss", "Decline", "Reject", "Deny"}
)

// Incoming is the host app's "incoming connection request" dialog.
var Incoming = Shape{
	Name:       "incoming-connection",
	Threshold:  4,
	MinSignals: 2,
	Probes: []Probe{
		{Name: "title", Weight: 2, Kind: ProbeText,
			Patterns: []string{"incoming connection request", "connection request"}},
		{Name: "body", Weight: 2, Kind: ProbeText,
			Patterns: []string{"wants to connect", "would like to connect", "requests remote access"}},
		{Name: "address", Weight: 1, Kind: ProbeID,
			Patterns: []string{locate.HostPackage + ":id/address", locate.HostPackage + ":id/alias"}},
		{Name: "permissions", Weight: 1, Kind: ProbeText,
			Patterns: []string{"permission"}},
		{Name: "accept-reject-pair", Weight: 3, Kind: ProbePair,
			Patterns: acceptCaptions, Alt: rejectCaptions},
		{Name: "profile-selector", Weight: 1, Kind: ProbeClass,
			Patterns: []string{"Spinner"}},
	},
}

// ShareDialog is the cast companion's share-start dialog with the mode
// selector. Container and title corroborate the same fact, so only the
// first of the two scores.
var ShareDialog = Shape{
	Name:       "share-dialog",
	Threshold:  4,
	MinSignals: 2,
	Probes: []Probe{
		{Name: "container", Weight: 2, Kind: ProbeID, Group: "frame",
			Patterns: []string{locate.CastPackage + ":id/share_dialog"}},
		{Name: "title", Weight: 2, Kind: ProbeText, Group: "frame",
			Patterns: []string{"start screen sharing", "share your screen", "screen sharing"}},
		{Name: "mode-selector", Weight: 2, Kind: ProbeClass,
			Patterns: []string{"Spinner"}},
	},
}

// Chooser is the share-target chooser listing what can be shared.
var Chooser = Shape{
	Name:       "share-chooser",
	Threshold:  4,
	MinSignals: 2,
	Probes: []Probe{
		{Name: "container", Weight: 2, Kind: ProbeID, Group: "frame",
			Patterns: []string{locate.CastPackage + ":id/share_mode_list", "android:id/select_dialog_listview"}},
		{Name: "title", Weight: 2, Kind: ProbeText, Group: "frame",
			Patterns: []string{"choose what to share", "what to share", "share content"}},
		{Name: "entire-screen-option", Weight: 2, Kind: ProbeText,
			Patterns: []string{"entire screen"}},
	},
}

// Confirm is the final OS-level projection consent dialog.
var Confirm = Shape{
	Name:       "share-confirm",
	Threshold:  4,
	MinSignals: 2,
	Probes: []Probe{
		{Name: "container", Weight: 2, Kind: ProbeID, Group: "frame",
			Patterns: []string{locate.CastPackage + ":id/share_confirm"}},
		{Name: "title", Weight: 2, Kind: ProbeText, Group: "frame",
			Patterns: []string{"start recording or casting", "about to start sharing", "start sharing"}},
		{Name: "confirm-control", Weight: 2, Kind: ProbeControl,
			Patterns: []string{"Share screen", "Start now", "Start sharing", "Start"}},
	},
}

// All lists every known shape, for diagnostics.
var All = []Shape{Incoming, ShareDialog, Chooser, Confirm}
