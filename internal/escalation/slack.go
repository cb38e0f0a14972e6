package escalation

import (
	"context"
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/frontdesk/internal/domain"
)

// maxListedRequests bounds the per-request sections in one Slack message.
const maxListedRequests = 10

// SlackAPI abstracts the subset of the Slack client used by SlackNotifier.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier posts timed-out questions to a supervisor channel.
type SlackNotifier struct {
	api     SlackAPI
	channel string
}

var _ Notifier = (*SlackNotifier)(nil) //nolint:gochecknoglobals // compile-time check

func NewSlackNotifier(api SlackAPI, channel string) *SlackNotifier {
	return &SlackNotifier{api: api, channel: channel}
}

func (n *SlackNotifier) NotifyUnresolved(ctx context.Context, reqs []*domain.HelpRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	fallback := fmt.Sprintf("%d help request(s) timed out without an answer", len(reqs))
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slacklib.MsgOptionText(fallback, false),
		slacklib.MsgOptionBlocks(BuildUnresolvedBlocks(reqs)...),
	)
	if err != nil {
		return fmt.Errorf("escalation.SlackNotifier.NotifyUnresolved: %w", err)
	}
	return nil
}

// BuildUnresolvedBlocks builds Block Kit blocks listing timed-out questions.
func BuildUnresolvedBlocks(reqs []*domain.HelpRequest) []slacklib.Block {
	header := fmt.Sprintf("*%d help request(s) timed out without an answer*", len(reqs))
	blocks := []slacklib.Block{
		slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, header, false, false),
			nil,
			nil,
		),
	}

	for i, r := range reqs {
		if i == maxListedRequests {
			more := fmt.Sprintf("_…and %d more_", len(reqs)-maxListedRequests)
			blocks = append(blocks, slacklib.NewContextBlock("",
				slacklib.NewTextBlockObject(slacklib.MarkdownType, more, false, false),
			))
			break
		}

		var b strings.Builder
		fmt.Fprintf(&b, "*Question:* %s\n", r.QuestionText)
		if r.CallerID != nil {
			fmt.Fprintf(&b, "*Caller:* %s\n", *r.CallerID)
		}
		fmt.Fprintf(&b, "*Waiting since:* %s\n`%s` · %s",
			r.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), r.ID, r.UnresolvedReason)

		blocks = append(blocks, slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, b.String(), false, false),
			nil,
			nil,
		))
	}

	return blocks
}
