package bot

// defaultLanguage is used until a user picks one with /lang.
const defaultLanguage = "en"

// supportedLanguages lists the /lang choices in display order. Codes must
// have a catalog entry below.
var supportedLanguages = []struct {
	Code string
	Name string
}{
	{"en", "English"},
	{"ar", "العربية"},
}

var messages = map[string]map[string]string{
	"en": {
		"welcome":            "Hi! Send me a photo of any product and I'll try to identify it and find it for you.",
		"help":               "Send a product photo and I'll reply with its name and a shopping link.\n\nCommands:\n/lang - choose your language\n/health - bot status\n/help - this message",
		"choose_language":    "Choose your language:",
		"language_set":       "Language set to English.",
		"busy":               "Still working on your previous photo. Send the next one when I reply.",
		"send_photo_hint":    "Send me a product photo to get started.",
		"no_image":           "I couldn't read that photo. Please try another one.",
		"photo_too_large":    "That photo is too large for me to process. Please send a smaller one.",
		"recognition_failed": "I couldn't identify the product this time. A clearer photo might help.",
		"unknown_product":    "I couldn't tell what product that is.",
		"search_amazon":      "Search on Amazon",
		"health_report":      "Bot is up.\nUptime: %s\nStorage: %s\nTargets: %s",
	},
	"ar": {
		"welcome":            "مرحباً! أرسل لي صورة لأي منتج وسأحاول التعرف عليه وإيجاده لك.",
		"help":               "أرسل صورة منتج وسأرد عليك باسمه ورابط للشراء.\n\nالأوامر:\n/lang - اختيار اللغة\n/health - حالة البوت\n/help - هذه الرسالة",
		"choose_language":    "اختر لغتك:",
		"language_set":       "تم ضبط اللغة إلى العربية.",
		"busy":               "ما زلت أعمل على صورتك السابقة. أرسل التالية بعد أن أرد.",
		"send_photo_hint":    "أرسل لي صورة منتج للبدء.",
		"no_image":           "تعذرت قراءة هذه الصورة. جرّب صورة أخرى من فضلك.",
		"photo_too_large":    "هذه الصورة كبيرة جداً ولا يمكنني معالجتها. أرسل صورة أصغر من فضلك.",
		"recognition_failed": "لم أتمكن من التعرف على المنتج هذه المرة. قد تساعد صورة أوضح.",
		"unknown_product":    "لم أستطع تحديد هذا المنتج.",
		"search_amazon":      "ابحث في أمازون",
		"health_report":      "البوت يعمل.\nوقت التشغيل: %s\nالتخزين: %s\nالأهداف: %s",
	},
}

// Message returns the catalog text for a language and key, falling back
// to English when the language (or its key) is missing.
func Message(lang, key string) string {
	if m, ok := messages[lang]; ok {
		if text, ok := m[key]; ok {
			return text
		}
	}
	return messages[defaultLanguage][key]
}

// supportedLanguage reports whether code is an offered /lang choice.
func supportedLanguage(code string) bool {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}
