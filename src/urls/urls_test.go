package urls

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrl(t *testing.T) {
	defer SetGlobalBaseUrl(baseUrl)
	SetGlobalBaseUrl("http://snapwall.test/")

	t.Run("no query", func(t *testing.T) {
		assert.Equal(t, "http://snapwall.test/test/foo", Url("/test/foo", nil))
	})
	t.Run("yes query", func(t *testing.T) {
		result := Url("/test/foo", []Q{{"bar", "baz"}, {"zig??", "zig & zag!!"}})
		assert.Equal(t, "http://snapwall.test/test/foo?bar=baz&zig%3F%3F=zig+%26+zag%21%21", result)
	})
	t.Run("static", func(t *testing.T) {
		assert.Equal(t, "http://snapwall.test/static/style.css", StaticUrl("style.css", nil))
	})
}

func TestAuthPages(t *testing.T) {
	AssertRegexMatch(t, BuildHomepage(), RegexHomepage, nil)
	AssertRegexMatch(t, BuildLogin(), RegexLogin, nil)
	AssertRegexMatch(t, BuildLogout(), RegexLogout, nil)
	AssertRegexMatch(t, BuildRegister(), RegexRegister, nil)
	AssertRegexMatch(t, BuildProfile(), RegexProfile, nil)
	AssertRegexMatch(t, BuildHealth(), RegexHealth, nil)
}

func TestImages(t *testing.T) {
	AssertRegexMatch(t, BuildImages(), RegexImages, nil)
	AssertRegexMatch(t, BuildImageUpload(), RegexImageUpload, nil)
	AssertRegexMatch(t, BuildImageFile(12), RegexImageFile, map[string]string{"imageid": "12"})
	AssertRegexMatch(t, BuildImageEdit(12), RegexImageEdit, map[string]string{"imageid": "12"})
	AssertRegexMatch(t, BuildImageDelete(12), RegexImageDelete, map[string]string{"imageid": "12"})
	AssertRegexMatch(t, BuildImageUnlock(12), RegexImageUnlock, map[string]string{"imageid": "12"})
	AssertRegexMatch(t, BuildImageLike(12), RegexImageLike, map[string]string{"imageid": "12"})
	AssertRegexMatch(t, BuildImageUnlike(12), RegexImageUnlike, map[string]string{"imageid": "12"})

	assert.NotRegexp(t, RegexImageFile, "/images/abc/file")
	assert.NotRegexp(t, RegexImages, "/images/upload")
}

func TestAdmin(t *testing.T) {
	AssertRegexMatch(t, BuildAdminBan(3), RegexAdminBan, map[string]string{"userid": "3"})
	AssertRegexMatch(t, BuildAdminUnban(3), RegexAdminUnban, map[string]string{"userid": "3"})
	AssertRegexMatch(t, BuildAdminPerf(), RegexAdminPerf, nil)
	assert.Contains(t, BuildAdmin("10.0"), "/admin/?ip=10.0")
	assert.Regexp(t, RegexAdmin, "/admin")
}

func AssertRegexMatch(t *testing.T, fullUrl string, regex *regexp.Regexp, paramsToVerify map[string]string) {
	t.Helper()
	parsed, err := url.Parse(fullUrl)
	ok := assert.Nilf(t, err, "Full url could not be parsed: %s", fullUrl)
	if !ok {
		return
	}

	requestPath := parsed.Path
	if len(requestPath) == 0 {
		requestPath = "/"
	}
	match := regex.FindStringSubmatch(requestPath)
	if !assert.NotNilf(t, match, "Url did not match regex: [%s] vs [%s]", requestPath, regex.String()) {
		return
	}

	if paramsToVerify != nil {
		subexpNames := regex.SubexpNames()
		for i, matchedValue := range match {
			paramName := subexpNames[i]
			expectedValue, ok := paramsToVerify[paramName]
			if ok {
				assert.Equalf(t, expectedValue, matchedValue, "Param mismatch for [%s]", paramName)
				delete(paramsToVerify, paramName)
			}
		}
		if len(paramsToVerify) > 0 {
			unmatchedParams := make([]string, 0, len(paramsToVerify))
			for paramName := range paramsToVerify {
				unmatchedParams = append(unmatchedParams, paramName)
			}
			assert.Fail(t, "Expected match groups not found", unmatchedParams)
		}
	}
}
