package dispatch

import (
	"context"
	"strings"

	"github.com/user/chatcal/internal/format"
	"github.com/user/chatcal/internal/intent"
	"github.com/user/chatcal/internal/types"
)

func (d *Dispatcher) handleAdd(ctx context.Context, chatID types.ChatID, in intent.Add) string {
	res, err := d.store.AddEvent(ctx, chatID, in.NewEvent())
	if err != nil {
		d.logger.Error("add event failed", "chat_id", int64(chatID), "title", in.Title, "error", err)
		return ReplyFailed
	}
	if !res.OK {
		return "❌ 일정 추가 실패\n" + res.Detail
	}

	var b strings.Builder
	b.WriteString("✅ 일정이 추가되었습니다!\n\n")
	b.WriteString("📅 " + in.Date + "\n")
	b.WriteString("🕐 " + format.TimeRange(in.StartTime, in.EndTime) + "\n")
	b.WriteString("📝 " + in.Title)
	if in.Description != "" {
		b.WriteString("\n💬 " + in.Description)
	}
	return b.String()
}

func (d *Dispatcher) handleDelete(ctx context.Context, chatID types.ChatID, in intent.Delete) string {
	res, err := d.store.DeleteEvent(ctx, chatID, in.Title, in.Date, in.OriginalTime)
	if err != nil {
		d.logger.Error("delete event failed", "chat_id", int64(chatID), "title", in.Title, "error", err)
		return ReplyFailed
	}
	if !res.OK {
		return "❌ 일정 삭제 실패\n" + res.Detail
	}
	return "🗑️ 일정이 삭제되었습니다!\n\n📅 " + in.Date + "\n📝 " + res.Detail
}

func (d *Dispatcher) handleEdit(ctx context.Context, chatID types.ChatID, in intent.Edit) string {
	res, err := d.store.EditEvent(ctx, chatID, in.Title, in.Date, in.Changes, in.OriginalTime)
	if err != nil {
		d.logger.Error("edit event failed", "chat_id", int64(chatID), "title", in.Title, "error", err)
		return ReplyFailed
	}
	if !res.OK {
		return "❌ 일정 수정 실패\n" + res.Detail
	}

	reply := "✏️ 일정이 수정되었습니다!\n\n📝 " + res.Detail
	if lines := format.Changes(in.Changes); len(lines) > 0 {
		reply += "\n\n변경사항:\n• " + strings.Join(lines, "\n• ")
	}
	return reply
}

func (d *Dispatcher) handleQueryToday(ctx context.Context, chatID types.ChatID) string {
	events, err := d.store.EventsToday(ctx, chatID)
	if err != nil {
		d.logger.Error("fetching today's events failed", "chat_id", int64(chatID), "error", err)
		return ReplyLoadFailed
	}
	return format.Day(events)
}

func (d *Dispatcher) handleQueryWeek(ctx context.Context, chatID types.ChatID) string {
	events, err := d.store.EventsThisWeek(ctx, chatID)
	if err != nil {
		d.logger.Error("fetching week's events failed", "chat_id", int64(chatID), "error", err)
		return ReplyLoadFailed
	}
	return format.Week(events)
}

func (d *Dispatcher) handleSearch(ctx context.Context, chatID types.ChatID, in intent.Search) string {
	events, err := d.store.Search(ctx, chatID, in.Query())
	if err != nil {
		d.logger.Error("searching events failed", "chat_id", int64(chatID), "keyword", in.Keyword, "error", err)
		return ReplySearchFailed
	}
	return format.Search(events, in.Keyword)
}

func handleOther(in intent.Other) string {
	if strings.TrimSpace(in.Response) == "" {
		return ReplyOtherFallback
	}
	return in.Response
}
