package core

// Wire event names. Client compatibility depends on these exact strings.
const (
	EventJoinRoom  = "join_room"
	EventLeaveRoom = "leave_room"
	EventIdentify  = "identify"
	EventPing      = "ping"
	EventPong      = "pong"
	EventError     = "error"

	EventSendMsg    = "send_msg"
	EventNewMsg     = "new_msg"
	EventSendFailed = "send_failed"

	EventStartCall     = "start_call"
	EventIncomingCall  = "incoming_call"
	EventCallFailed    = "call_failed"
	EventAcceptCall    = "accept_call"
	EventRejectCall    = "reject_call"
	EventCancelCall    = "cancel_call"
	EventCallAccepted  = "call_accepted"
	EventCallRejected  = "call_rejected"
	EventCallCancelled = "call_cancelled"

	EventAgoraJoin    = "agora_join"
	EventPresence     = "presence"
	EventUserNameInfo = "user_name_info"

	EventUpdateFriends = "update_friends"
)
