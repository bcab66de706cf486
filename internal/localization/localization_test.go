package localization_test

import (
	"testing"
	"testing/fstest"

	"livechat/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault_LoadsBundles(t *testing.T) {
	l, err := localization.NewDefault()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"en", "pt-BR"}, l.Languages())
	assert.Equal(t, "Nova mensagem", l.GetString("pt-BR", "notify_incoming_message"))
	assert.Equal(t, "New message", l.GetString("en", "notify_incoming_message"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"i18n/en.json":    {Data: []byte(`{"greeting":"Hello","only_en":"English only"}`)},
		"i18n/pt-BR.json": {Data: []byte(`{"greeting":"Olá"}`)},
		"i18n/README.md":  {Data: []byte("ignored")},
	}
	l, err := localization.NewLocalizer(fsys, "i18n")
	require.NoError(t, err)

	assert.Equal(t, "Olá", l.GetString("pt-BR", "greeting"))
	assert.Equal(t, "English only", l.GetString("pt-BR", "only_en"))
	assert.Equal(t, "Hello", l.GetString("fr", "greeting"))
	assert.Equal(t, "missing_key", l.GetString("en", "missing_key"))
}

func TestNewLocalizer_Errors(t *testing.T) {
	_, err := localization.NewLocalizer(fstest.MapFS{}, "nope")
	assert.Error(t, err)

	_, err = localization.NewLocalizer(fstest.MapFS{"l/en.json": {Data: []byte("{")}}, "l")
	assert.ErrorContains(t, err, "en.json")
}

func TestBundlesHaveSameKeys(t *testing.T) {
	l, err := localization.NewDefault()
	require.NoError(t, err)

	for _, key := range []string{"notify_new_chat", "notify_incoming_message", "notify_message_sent", "notify_error", "alert_new_chat", "alert_unknown_lead", "waiting_count"} {
		assert.NotEqual(t, key, l.GetString("pt-BR", key), key)
		assert.NotEqual(t, l.GetString("en", key), l.GetString("pt-BR", key), key)
	}
}
