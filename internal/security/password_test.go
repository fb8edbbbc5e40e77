package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordHasher_Cost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"0はデフォルト", 0, bcrypt.DefaultCost},
		{"下限未満はデフォルト", bcrypt.MinCost - 1, bcrypt.DefaultCost},
		{"上限超過はデフォルト", bcrypt.MaxCost + 1, bcrypt.DefaultCost},
		{"範囲内はそのまま", bcrypt.MinCost, bcrypt.MinCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPasswordHasher(tt.cost).Cost(); got != tt.want {
				t.Errorf("Cost() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "s3cret" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("ハッシュ形式が不正: %q", hash)
	}

	if err := h.Verify(hash, "s3cret"); err != nil {
		t.Errorf("正しいパスワードでVerify() error = %v", err)
	}
	if err := h.Verify(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("誤ったパスワードでVerify() error = %v, want ErrPasswordMismatch", err)
	}
}

func TestPasswordHasher_Hash_Salted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("同じパスワードから同じハッシュが生成された")
	}
}

func TestPasswordHasher_Verify_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	err := h.Verify("not-a-hash", "x")
	if err == nil {
		t.Fatal("不正なハッシュでエラーにならない")
	}
	if errors.Is(err, ErrPasswordMismatch) {
		t.Error("不正なハッシュはErrPasswordMismatchと区別されるべき")
	}
}
