package desktop

import "strings"

// Navigable routes of the shell. The chat detail route is parameterized by
// session id.
const (
	RouteHome          = "/"
	RouteChats         = "/chat/chats"
	RouteContacts      = "/chat/contacts"
	RouteDiscover      = "/chat/discover"
	RouteMe            = "/chat/me"
	RouteCreateContact = "/chat/create-contact"
	RouteChatDetail    = "/chat/chat-detail/:sessionId"
	RouteSettings      = "/chat/settings"
	RouteWallet        = "/chat/wallet"
	RouteUserMasks     = "/chat/user-masks"
	RouteStyling       = "/chat/styling"
	RouteTheme         = "/theme"
)

// Routes lists every navigable route.
var Routes = []string{
	RouteHome,
	RouteChats,
	RouteContacts,
	RouteDiscover,
	RouteMe,
	RouteCreateContact,
	RouteChatDetail,
	RouteSettings,
	RouteWallet,
	RouteUserMasks,
	RouteStyling,
	RouteTheme,
}

// ChatDetailPath returns the detail route for sessionID.
func ChatDetailPath(sessionID string) string {
	return strings.Replace(RouteChatDetail, ":sessionId", sessionID, 1)
}
