package captcha

import (
	"crypto/rand"
	"fmt"
	"image/color"
	"math/big"
	"strconv"
	"strings"

	"github.com/mojocn/base64Captcha"
)

// Kinds reported to clients so they know how to present the challenge.
const (
	KindText  = "text"
	KindImage = "image"
)

// Strategy produces challenges and canonicalizes submitted answers.
type Strategy interface {
	// New returns the expected answer and the presentable challenge.
	New() (answer, rendered string, err error)
	// Normalize turns a raw submission into the form stored as the expected answer.
	Normalize(submitted string) (string, error)
	Kind() string
}

// ArithmeticStrategy asks for the sum of two digits in [1,9].
type ArithmeticStrategy struct{}

func (ArithmeticStrategy) New() (string, string, error) {
	a, err := randIntn(9)
	if err != nil {
		return "", "", err
	}
	b, err := randIntn(9)
	if err != nil {
		return "", "", err
	}
	a, b = a+1, b+1
	return strconv.Itoa(a + b), fmt.Sprintf("%d + %d = ?", a, b), nil
}

func (ArithmeticStrategy) Normalize(submitted string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(submitted))
	if err != nil {
		return "", ErrInvalidAnswerFormat
	}
	return strconv.Itoa(n), nil
}

func (ArithmeticStrategy) Kind() string { return KindText }

// VisualAlphabet leaves out 0/O and 1/I/L.
const VisualAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// VisualStrategy renders a random code as a noisy PNG data URI.
type VisualStrategy struct {
	driver *base64Captcha.DriverString
}

// NewVisualStrategy builds a renderer for codes of the given length (6 when <= 0).
func NewVisualStrategy(length, width, height int) *VisualStrategy {
	if length <= 0 {
		length = 6
	}
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 64
	}
	driver := base64Captcha.NewDriverString(
		height,
		width,
		0,
		base64Captcha.OptionShowHollowLine|base64Captcha.OptionShowSlimeLine,
		length,
		VisualAlphabet,
		&color.RGBA{R: 245, G: 245, B: 245, A: 255},
		nil,
		nil,
	)
	return &VisualStrategy{driver: driver}
}

func (v *VisualStrategy) New() (string, string, error) {
	_, _, answer := v.driver.GenerateIdQuestionAnswer()
	answer = strings.ToUpper(answer)
	item, err := v.driver.DrawCaptcha(answer)
	if err != nil {
		return "", "", fmt.Errorf("draw captcha: %w", err)
	}
	return answer, item.EncodeB64string(), nil
}

func (v *VisualStrategy) Normalize(submitted string) (string, error) {
	return strings.ToUpper(strings.TrimSpace(submitted)), nil
}

func (v *VisualStrategy) Kind() string { return KindImage }

// NewStrategy maps the configured mode onto a strategy. Unknown modes fall back to math.
func NewStrategy(mode string) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "image", "visual":
		return NewVisualStrategy(6, 0, 0)
	default:
		return ArithmeticStrategy{}
	}
}

func randIntn(n int64) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
