package dispatch

// Fixed replies. Backend failure details and formatted event lists are
// composed in the handlers.
const (
	ReplyNotAuthenticated = "먼저 /start 로 인증을 완료해주세요."
	ReplyNotUnderstood    = "메시지를 이해하지 못했습니다. 다시 시도해주세요.\n예: \"내일 오후 2시에 치과 예약\""
	ReplyUnrecognized     = "메시지를 이해하지 못했습니다."
	ReplyOtherFallback    = "무엇을 도와드릴까요?"
	ReplyLoadFailed       = "일정을 불러오는 중 오류가 발생했습니다."
	ReplySearchFailed     = "일정 검색 중 오류가 발생했습니다."
	ReplyFailed           = "오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)
