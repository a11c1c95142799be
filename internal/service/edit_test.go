package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service/publisher"
)

func (h *harness) publish(t *testing.T, projectID string, platforms ...string) {
	t.Helper()
	_, err := h.svc.Publish(context.Background(), PublishRequest{ProjectID: projectID, UserID: "user-1", Platforms: platforms})
	require.NoError(t, err)
}

func TestEdit_NothingPublishedMakesNoCalls(t *testing.T) {
	h := newHarness(t, models.PlatformDevTo, models.PlatformGhost)
	project := h.project(t)

	resp, err := h.svc.Edit(context.Background(), EditRequest{ProjectID: project.ID, UserID: "user-1", Platforms: []string{"DevTo", "Ghost"}})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Empty(t, resp.Results)
	assert.Zero(t, h.adapters[models.PlatformDevTo].updates.Load())
	assert.Zero(t, h.adapters[models.PlatformGhost].updates.Load())
}

func TestEdit_UpdatesPublishedPlatformsOnly(t *testing.T) {
	h := newHarness(t, models.PlatformDevTo, models.PlatformGhost)
	h.adapters[models.PlatformGhost].create = func(publisher.PublishContent) (*models.PlatformResult, error) {
		return publisher.Failed(models.PlatformGhost, errors.New("422")), nil
	}
	project := h.project(t)
	h.publish(t, project.ID, "DevTo", "Ghost")

	var gotRemoteID, gotTitle string
	h.adapters[models.PlatformDevTo].update = func(content publisher.PublishContent, remoteID string) (*models.PlatformResult, error) {
		gotRemoteID, gotTitle = remoteID, content.Title
		return publisher.Succeeded(models.PlatformDevTo, remoteID, "https://dev.to/new-slug"), nil
	}

	project.Title = "Hello again"
	require.NoError(t, h.projects.Update(context.Background(), project))

	resp, err := h.svc.Edit(context.Background(), EditRequest{ProjectID: project.ID, UserID: "user-1", Platforms: []string{"DevTo", "Ghost"}})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.PlatformDevTo, resp.Results[0].Name)
	assert.Equal(t, "Updated 1 of 1 platforms", resp.Message)
	assert.Equal(t, "remote-DevTo", gotRemoteID)
	assert.Equal(t, "Hello again", gotTitle)
	assert.Zero(t, h.adapters[models.PlatformGhost].updates.Load())

	post := h.post(t, project.ID, models.PlatformDevTo)
	assert.Equal(t, "https://dev.to/new-slug", post.PublishedURL)
	assert.Equal(t, "remote-DevTo", post.RemoteID)
	assert.Equal(t, models.ProjectStatusPublished, h.reload(t, project.ID).Status)
}

func TestEdit_FailureKeepsRemoteID(t *testing.T) {
	h := newHarness(t, models.PlatformWordPress)
	project := h.project(t)
	h.publish(t, project.ID, "WordPress")

	h.adapters[models.PlatformWordPress].update = func(publisher.PublishContent, string) (*models.PlatformResult, error) {
		return publisher.Failed(models.PlatformWordPress, errors.New("403 Forbidden")), nil
	}

	resp, err := h.svc.Edit(context.Background(), EditRequest{ProjectID: project.ID, UserID: "user-1", Platforms: []string{"WordPress"}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.PostStatusError, resp.Results[0].Status)

	post := h.post(t, project.ID, models.PlatformWordPress)
	assert.Equal(t, models.PostStatusError, post.Status)
	assert.Equal(t, "403 Forbidden", post.Error)
	assert.Equal(t, "remote-WordPress", post.RemoteID)
	assert.Equal(t, "https://example.com/WordPress", post.PublishedURL)
	assert.Equal(t, models.ProjectStatusPublished, h.reload(t, project.ID).Status)
}

func TestEdit_UnsupportedPlatformIsOmitted(t *testing.T) {
	h := newHarness(t, models.PlatformMedium, models.PlatformHashnode)
	h.adapters[models.PlatformMedium].update = func(publisher.PublishContent, string) (*models.PlatformResult, error) {
		return nil, publisher.ErrUpdateUnsupported
	}
	project := h.project(t)
	h.publish(t, project.ID, "Medium", "Hashnode")

	resp, err := h.svc.Edit(context.Background(), EditRequest{ProjectID: project.ID, UserID: "user-1", Platforms: []string{"Medium", "Hashnode"}})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.PlatformHashnode, resp.Results[0].Name)
	assert.Equal(t, int32(1), h.adapters[models.PlatformMedium].updates.Load())
	assert.Equal(t, models.PostStatusSuccess, h.post(t, project.ID, models.PlatformMedium).Status)
	assert.Equal(t, 1.0, counterValue(t, h.svc.monitoring, "publish_studio_platform_operations_total", map[string]string{
		"operation": "update",
		"platform":  "Medium",
		"result":    "skipped",
	}))
}

func TestEdit_NotConnectedOnlyForQualifyingPlatforms(t *testing.T) {
	h := newHarness(t, models.PlatformDevTo, models.PlatformBlogger)
	project := h.project(t)
	h.publish(t, project.ID, "DevTo")
	h.svc.connections = fakeConnections{}

	_, err := h.svc.Edit(context.Background(), EditRequest{ProjectID: project.ID, UserID: "user-1", Platforms: []string{"DevTo", "Blogger"}})
	var notConnected *PlatformNotConnectedError
	require.ErrorAs(t, err, &notConnected)
	assert.Equal(t, []models.PlatformName{models.PlatformDevTo}, notConnected.Platforms)
	assert.Zero(t, h.adapters[models.PlatformDevTo].updates.Load())
}

func TestEdit_Validation(t *testing.T) {
	h := newHarness(t, models.PlatformDevTo)
	project := h.project(t)

	_, err := h.svc.Edit(context.Background(), EditRequest{ProjectID: project.ID, UserID: "user-1"})
	assert.ErrorIs(t, err, ErrNoPlatforms)

	_, err = h.svc.Edit(context.Background(), EditRequest{ProjectID: "missing", UserID: "user-1", Platforms: []string{"DevTo"}})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
