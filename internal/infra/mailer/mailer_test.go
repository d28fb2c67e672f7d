package mailer_test

import (
	"context"
	"errors"
	"testing"

	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/infra/mailer"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages []string
	params   []stypes.Params
	err      error
}

func (r *recordingSender) Send(message string, params *stypes.Params) []error {
	r.messages = append(r.messages, message)
	r.params = append(r.params, *params)
	return []error{r.err}
}

var sample = outbox.Context{
	OrderNumber:   "MUS-00007",
	Kind:          "music",
	Tier:          "professional",
	Title:         "Summer Jingle",
	Email:         "ana@example.com",
	VersionNumber: 2,
	Remaining:     1,
	Message:       "louder <b>drums</b>",
}

func TestRenderEveryTemplate(t *testing.T) {
	m, err := mailer.NewWithSender(&recordingSender{}, "https://studio.test")
	require.NoError(t, err)

	for _, name := range []string{
		"production_started", "demos_ready", "direction_confirmed", "revision_ready",
		"version_confirmed", "changes_requested", "version_delivered", "revision_requested",
		"version_approved", "final_ready", "license_issued",
	} {
		t.Run(name, func(t *testing.T) {
			subject, html, text, err := m.Render(name, sample)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.Contains(t, html, "https://studio.test/orders/MUS-00007")
			assert.NotContains(t, text, "<p>")
		})
	}

	_, _, _, err = m.Render("nope", sample)
	assert.Error(t, err)
}

func TestRenderEscapesClientText(t *testing.T) {
	m, err := mailer.NewWithSender(&recordingSender{}, "")
	require.NoError(t, err)

	subject, html, _, err := m.Render("changes_requested", sample)
	require.NoError(t, err)
	assert.Equal(t, "Changes requested on Summer Jingle", subject)
	assert.Contains(t, html, "louder &lt;b&gt;drums&lt;/b&gt;")
}

func TestSendUsesRecipientAndSubject(t *testing.T) {
	rec := &recordingSender{}
	m, err := mailer.NewWithSender(rec, "https://studio.test")
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), "revision_ready", "ana@example.com", sample))
	require.Len(t, rec.messages, 1)
	assert.Contains(t, rec.messages[0], "Version 2 of Summer Jingle is ready for review")
	assert.Equal(t, "ana@example.com", rec.params[0]["toaddresses"])
	title, ok := rec.params[0].Title()
	assert.True(t, ok)
	assert.Equal(t, "A new version of Summer Jingle is ready", title)
}

func TestSendPropagatesSenderError(t *testing.T) {
	rec := &recordingSender{err: errors.New("smtp: 421 try later")}
	m, err := mailer.NewWithSender(rec, "")
	require.NoError(t, err)

	err = m.Send(context.Background(), "final_ready", "ana@example.com", sample)
	assert.ErrorContains(t, err, "421")
}
