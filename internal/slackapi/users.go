package slackapi

import (
	"context"
	"strings"
)

// UserLabel returns a human-friendly name for userID: display name, then
// real name, then user name. Lookups that fail fall back to a <@id> mention
// and are not cached.
func (c *Client) UserLabel(ctx context.Context, userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	if label, ok := c.users.Get(userID); ok {
		return label
	}
	mention := "<@" + userID + ">"

	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return mention
	}
	defer cancel()
	user, err := c.api.GetUserInfoContext(callCtx, userID)
	if err != nil || user == nil {
		if err != nil {
			c.logger.Debug("slack_user_info_error", "user_id", userID, "error", err.Error())
		}
		return mention
	}
	label := firstNonEmpty(user.Profile.DisplayName, user.Profile.RealName, user.RealName, user.Name)
	if label == "" {
		label = mention
	}
	c.users.Add(userID, label)
	return label
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
