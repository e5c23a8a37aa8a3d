package services

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/common"
)

// sessionSnapshot is the part of an identity snapshot the fallback reads.
// It matches any envelope carrying state.user.{id,username}, whatever wrote it.
type sessionSnapshot struct {
	State struct {
		User *struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"state"`
}

func sessionNameFor(raw []byte, userID string) (string, bool) {
	var p sessionSnapshot
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", false
	}
	if p.State.User == nil || p.State.User.ID != userID {
		return "", false
	}
	return p.State.User.Username, true
}

// GetEventCreatorInfo maps an event's owner id to a display name. It never
// mutates the store. Lookups run in order and stop at the first hit:
//
//  1. the live directory, when one is wired;
//  2. the current session of the persisted identity snapshot;
//  3. the current session of any snapshot in the device key space.
//
// Step 3 reads keys owned by other stores. It only finds identities that
// were at some point the session on this device and is kept for snapshots
// written before the directory was persisted; do not build on it.
//
// When nothing matches the username is common.UnknownUser.
func (s *EventStore) GetEventCreatorInfo(ctx context.Context, userID string) models.CreatorInfo {
	unknown := models.CreatorInfo{Username: common.UnknownUser, Source: models.SourceUnknown}
	if userID == "" {
		return unknown
	}

	if s.directory != nil {
		if u, ok := s.directory.LookupUser(userID); ok {
			return models.CreatorInfo{Username: u.Username, Source: models.SourceDirectory}
		}
	}

	raw, err := s.repo.Get(ctx, common.AuthStoreName)
	if err != nil {
		s.log.Warn(ctx, "creator lookup: identity snapshot unreadable", "error", err)
	} else if name, ok := sessionNameFor(raw, userID); ok {
		return models.CreatorInfo{Username: name, Source: models.SourceSnapshot}
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		s.log.Warn(ctx, "creator lookup: key space unreadable", "error", err)
		return unknown
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		if k != common.AuthStoreName {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if name, ok := sessionNameFor(all[k], userID); ok {
			s.log.Debug(ctx, "creator resolved from foreign snapshot", "key", k, "user_id", userID)
			return models.CreatorInfo{Username: name, Source: models.SourceScan}
		}
	}

	s.log.Debug(ctx, "creator not resolved", "user_id", userID)
	return unknown
}
