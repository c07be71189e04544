package bot

import "strings"

// installKeywords trigger the software selection flow from free text.
var installKeywords = []string{"install", "software", "setup", "add program"}

const helpText = "I can help you get software installed on your machine. " +
	"Say \"install\" to see what's available."

// wantsInstall reports whether a free-text message is asking for an install.
func wantsInstall(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range installKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
