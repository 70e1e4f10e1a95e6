package service

import (
	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.English, // default
	language.Korean,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var userMessages = map[string]map[string]string{
	"en": {
		CodeValidation:                         "Your message could not be sent.",
		CodeValidation + ".empty":              "Please enter a message.",
		CodeValidation + ".too_long":           "Your message is too long. Please keep it under 1000 characters.",
		CodeValidation + ".conversation_ended": "This conversation has ended. Start a new one to keep chatting.",
		CodeNotFound:                           "We couldn't find that conversation.",
		CodeInsufficientCredits:                "You don't have enough credits to send a message.",
		CodeNoResponse:                         "Sorry, the character couldn't come up with a reply. Please try again.",
		CodeAPIError:                           "Sorry, something went wrong while generating a reply. Please try again later.",
	},
	"ko": {
		CodeValidation:                         "메시지를 보낼 수 없습니다.",
		CodeValidation + ".empty":              "메시지를 입력해주세요.",
		CodeValidation + ".too_long":           "메시지가 너무 깁니다. 1000자 이내로 입력해주세요.",
		CodeValidation + ".conversation_ended": "종료된 대화입니다. 새 대화를 시작해주세요.",
		CodeNotFound:                           "대화를 찾을 수 없습니다.",
		CodeInsufficientCredits:                "크레딧이 부족합니다.",
		CodeNoResponse:                         "죄송합니다. 응답을 생성하지 못했습니다. 다시 시도해주세요.",
		CodeAPIError:                           "죄송합니다. 응답 생성 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
	},
}

// ResolveLocale picks the supported locale best matching an Accept-Language value
func ResolveLocale(acceptLanguage string) string {
	_, index := language.MatchStrings(localeMatcher, acceptLanguage)
	base, _ := supportedLocales[index].Base()
	return base.String()
}

// UserMessage returns the localized text for an error code, refined by reason
// when the catalog has an entry for it.
func UserMessage(locale, code, reason string) string {
	catalog, ok := userMessages[locale]
	if !ok {
		catalog = userMessages["en"]
	}
	if reason != "" {
		if msg, ok := catalog[code+"."+reason]; ok {
			return msg
		}
	}
	if msg, ok := catalog[code]; ok {
		return msg
	}
	return catalog[CodeAPIError]
}
