package telegram

const (
	replyWelcomeBack = "이미 인증되었습니다!\n" +
		"자연어로 일정을 관리하세요.\n\n" +
		"💡 사용 예시:\n" +
		"• \"내일 오후 3시에 팀 회의\"\n" +
		"• \"오늘 일정 뭐야?\"\n" +
		"• \"이번 주 일정 알려줘\"\n" +
		"• \"내일 팀 회의 삭제해줘\"\n" +
		"• \"팀 회의 시간 4시로 변경해줘\""

	replyWelcomeFormat = "안녕하세요! 📅 캘린더 봇입니다.\n\n" +
		"Google 계정을 연동하려면 아래 링크를 열어 인증해주세요:\n\n" +
		"%s\n\n" +
		"인증 후 브라우저 주소창에서 code= 뒤의 값을 복사하여\n" +
		"/auth <코드> 형식으로 보내주세요.\n\n" +
		"예: /auth 4/0AX4XfWh..."

	replyAuthUsage = "사용법: /auth <인증코드>\n" +
		"인증코드는 Google 인증 후 주소창에서 code= 뒤의 값입니다."

	replyAuthPending = "🔄 인증 처리 중..."

	replyAuthSuccessFormat = "✅ 인증 성공!\n%s\n\n" +
		"이제 자연어로 일정을 관리할 수 있습니다.\n" +
		"예: \"내일 오후 3시에 팀 회의\""

	replyAuthFailed = "❌ 인증 실패\n" +
		"인증 코드를 확인하거나 /start 로 새 링크를 받아 다시 시도해주세요."

	replyLoggedOut = "🔓 Google 계정 연동이 해제되었습니다.\n" +
		"다시 연동하려면 /start 를 보내주세요."

	replyNotLinked = "연동된 Google 계정이 없습니다.\n" +
		"/start 로 연동을 시작하세요."

	replyBusy = "오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)
