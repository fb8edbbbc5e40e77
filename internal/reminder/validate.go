package reminder

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/security"
)

// colorPattern は#RGBまたは#RRGGBB形式の色指定にマッチする。
var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// normalizeInput は入力値をサニタイズ・検証し、保存可能な形に正規化する。
// 終日の場合は時刻を破棄する。ユーザー名は空白除去・重複排除し、ownerを必ず含める。
func normalizeInput(in model.ReminderInput, owner string, sanitizer security.TextSanitizer) (model.ReminderInput, error) {
	out := model.ReminderInput{
		Title:       sanitizer.Sanitize(in.Title),
		Description: sanitizer.Sanitize(in.Description),
		AllDay:      in.AllDay,
		Color:       strings.TrimSpace(in.Color),
	}

	if out.Title == "" {
		return out, model.NewValidationError("タイトルは必須です")
	}
	if utf8.RuneCountInString(out.Title) > model.TitleMaxLength {
		return out, model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で入力してください", model.TitleMaxLength))
	}
	if utf8.RuneCountInString(out.Description) > model.DescriptionMaxLength {
		return out, model.NewValidationError(fmt.Sprintf("説明は%d文字以内で入力してください", model.DescriptionMaxLength))
	}

	if in.Date.IsZero() {
		return out, model.NewValidationError("日付は必須です")
	}
	out.Date = time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC)

	if !in.AllDay {
		if in.Time == nil {
			return out, model.NewValidationError("終日でない場合は時刻が必須です")
		}
		t := *in.Time
		out.Time = &t
	}

	if out.Color != "" && !colorPattern.MatchString(out.Color) {
		return out, model.NewValidationError("色は#RGBまたは#RRGGBB形式で指定してください")
	}

	out.Usernames = participantUsernames(in.Usernames, owner)
	return out, nil
}

// participantUsernames は招待ユーザー名に作成者を加え、重複と空文字を除いて返す。
func participantUsernames(requested []string, owner string) []string {
	seen := make(map[string]struct{}, len(requested)+1)
	names := make([]string, 0, len(requested)+1)
	for _, name := range append([]string{owner}, requested...) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
