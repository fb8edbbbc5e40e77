package reminder

import (
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/security"
)

func TestParticipantUsernames(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		owner     string
		want      []string
	}{
		{"招待なしは作成者のみ", nil, "alice", []string{"alice"}},
		{"作成者を先頭に追加", []string{"bob"}, "alice", []string{"alice", "bob"}},
		{"作成者の重複を除去", []string{"alice", "bob"}, "alice", []string{"alice", "bob"}},
		{"空白と空文字を除去", []string{" bob ", "", "  ", "bob"}, "alice", []string{"alice", "bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := participantUsernames(tt.requested, tt.owner)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("participantUsernames() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestNormalizeInput_DateTruncatedToUTCMidnight は日付から時刻成分とタイムゾーンが落ちることを検証する。
func TestNormalizeInput_DateTruncatedToUTCMidnight(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	in := model.ReminderInput{
		Title:  "t",
		Date:   time.Date(2024, 6, 1, 23, 30, 0, 0, jst),
		AllDay: true,
	}

	out, err := normalizeInput(in, "alice", security.NewTextSanitizer())
	if err != nil {
		t.Fatalf("normalizeInput() error = %v", err)
	}
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !out.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", out.Date, want)
	}
}

func TestNormalizeInput_CopiesTime(t *testing.T) {
	tod := &model.TimeOfDay{Hour: 9}
	out, err := normalizeInput(model.ReminderInput{
		Title: "t", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Time: tod,
	}, "alice", security.NewTextSanitizer())
	if err != nil {
		t.Fatalf("normalizeInput() error = %v", err)
	}
	tod.Hour = 23
	if out.Time.Hour != 9 {
		t.Error("入力の時刻ポインタと共有されている")
	}
}
