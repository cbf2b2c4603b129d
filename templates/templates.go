package templates

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

const (
	alphanumericChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	alphabeticChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numericChars      = "0123456789"
	hexChars          = "0123456789abcdef"
)

type TemplateEngine struct{}

var (
	templateEngineInstance *TemplateEngine
	templateEngineOnce     sync.Once
)

// NewTemplateEngine returns the singleton instance of TemplateEngine
func NewTemplateEngine() *TemplateEngine {
	templateEngineOnce.Do(func() {
		// Register helpers only once during initialization
		RegisterHelpers()
		templateEngineInstance = &TemplateEngine{}
	})
	return templateEngineInstance
}

// RegisterHelpers registers custom Handlebars helpers
func RegisterHelpers() {
	// Register random value helper
	raymond.RegisterHelper("randomValue", func(options *raymond.Options) string {
		randomType := strings.ToUpper(options.HashStr("type"))
		if randomType == "" {
			randomType = "ALPHANUMERIC"
		}

		if randomType == "UUID" {
			return uuid.New().String()
		}

		length := 10
		if lengthVal := options.HashProp("length"); lengthVal != nil {
			length = toInt(lengthVal)
		}

		uppercase := false
		if uppercaseVal := options.HashProp("uppercase"); uppercaseVal != nil {
			uppercase = raymond.IsTrue(uppercaseVal)
		}

		var result string
		switch randomType {
		case "ALPHABETIC":
			result = generateRandomString(alphabeticChars, length)
		case "NUMERIC":
			result = generateRandomString(numericChars, length)
		case "HEXADECIMAL":
			result = generateRandomString(hexChars, length)
		default:
			result = generateRandomString(alphanumericChars, length)
		}

		if uppercase {
			result = strings.ToUpper(result)
		}

		return result
	})
	// Register randomInt helper
	raymond.RegisterHelper("randomInt", func(options *raymond.Options) string {
		lower := 0
		upper := 100

		if lowerVal := options.HashProp("lower"); lowerVal != nil {
			lower = toInt(lowerVal)
		}
		if upperVal := options.HashProp("upper"); upperVal != nil {
			upper = toInt(upperVal)
		}
		if lower > upper {
			lower, upper = upper, lower
		}

		rangeSize := upper - lower + 1
		num, err := rand.Int(rand.Reader, big.NewInt(int64(rangeSize)))
		if err != nil {
			return "0"
		}

		return fmt.Sprintf("%d", int(num.Int64())+lower)
	})
	// current timestamp helper
	raymond.RegisterHelper("now", func(options *raymond.Options) string {
		now := time.Now().UTC()

		switch options.HashStr("format") {
		case "epoch":
			// UNIX epoch time in milliseconds
			return fmt.Sprintf("%d", now.UnixMilli())
		case "unix":
			// UNIX timestamp in seconds
			return fmt.Sprintf("%d", now.Unix())
		default:
			return now.Format(time.RFC3339)
		}
	})
	// faker helper, handy for chat lines and character-flavoured parameters
	raymond.RegisterHelper("faker", func(key string) string {
		r := gofakeit.New(0)

		switch key {
		case "first_name":
			return r.FirstName()
		case "last_name":
			return r.LastName()
		case "full_name":
			return r.Name()
		case "username":
			return r.Username()
		case "word":
			return r.Word()
		case "sentence":
			return r.Sentence(5)
		case "uuid":
			return r.UUID()
		}
		return ""
	})
	// cut helper
	raymond.RegisterHelper("cut", func(value interface{}, toRemove interface{}, options *raymond.Options) raymond.SafeString {
		if value == nil {
			return raymond.SafeString("")
		}
		content := raymond.Str(value)
		removal := raymond.Str(toRemove)
		if removal == "" {
			return raymond.SafeString(content)
		}
		return raymond.SafeString(strings.ReplaceAll(content, removal, ""))
	})
}

// generateRandomString generates a cryptographically secure random string
func generateRandomString(charset string, length int) string {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return ""
		}
		result[i] = charset[num.Int64()]
	}

	return string(result)
}

// toInt converts various types to int
func toInt(val interface{}) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var result int
		fmt.Sscanf(v, "%d", &result)
		return result
	default:
		return 0
	}
}
