package llm_test

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"github.com/nzcrisisline/safetypipeline/internal/llm"
	"github.com/nzcrisisline/safetypipeline/internal/model"
)

type fakeMessagesClient struct {
	lastBody sdk.MessageNewParams
	resp     *sdk.Message
	err      error
}

func (f *fakeMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.lastBody = body
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestNewRequiresClientAndDefaultModel(t *testing.T) {
	_, err := llm.New(nil, llm.Options{DefaultModel: "claude-sonnet-4-5"})
	require.Error(t, err)

	_, err = llm.New(&fakeMessagesClient{}, llm.Options{})
	require.Error(t, err)
}

func TestCompleteRejectsEmptyMessages(t *testing.T) {
	c, err := llm.New(&fakeMessagesClient{}, llm.Options{DefaultModel: "claude-sonnet-4-5", MaxTokens: 512})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &model.Request{})
	require.Error(t, err)
}

func TestCompleteUsesSmallModelForSmallClass(t *testing.T) {
	fake := &fakeMessagesClient{resp: &sdk.Message{StopReason: "end_turn"}}
	c, err := llm.New(fake, llm.Options{DefaultModel: "claude-sonnet-4-5", SmallModel: "claude-haiku-4-5", MaxTokens: 512})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &model.Request{
		ModelClass: model.ModelClassSmall,
		Messages:   []model.Message{{Role: model.ConversationRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, sdk.Model("claude-haiku-4-5"), fake.lastBody.Model)
}

func TestCompleteTranslatesResponseTextAndUsage(t *testing.T) {
	fake := &fakeMessagesClient{resp: &sdk.Message{
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Here is some support information."},
		},
		Usage: sdk.Usage{InputTokens: 42, OutputTokens: 17},
	}}
	c, err := llm.New(fake, llm.Options{DefaultModel: "claude-sonnet-4-5", MaxTokens: 512})
	require.NoError(t, err)

	resp, err := c.Complete(context.Background(), &model.Request{
		Messages: []model.Message{{Role: model.ConversationRoleUser, Content: "I need help"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Here is some support information.", resp.Text)
	require.Equal(t, 42, resp.Usage.InputTokens)
	require.Equal(t, 17, resp.Usage.OutputTokens)
	require.Equal(t, 59, resp.Usage.TotalTokens)
}

func TestCompleteWrapsProviderErrorAsUnreachable(t *testing.T) {
	fake := &fakeMessagesClient{err: errors.New("connection reset")}
	c, err := llm.New(fake, llm.Options{DefaultModel: "claude-sonnet-4-5", MaxTokens: 512})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &model.Request{
		Messages: []model.Message{{Role: model.ConversationRoleUser, Content: "hi"}},
	})
	require.ErrorIs(t, err, model.ErrUnreachable)
}
