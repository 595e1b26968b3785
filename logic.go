package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Manager main business logic object
type Manager interface {
	ReconcileBatch(ctx context.Context, batch GameBatch) ([]GameUserUpdateResult, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
	PurgeRounds(ctx context.Context, olderThan time.Time) (int64, error)
}

// NewGameManager game update manager constructor
func NewGameManager(repo Repo, characters CharacterService) Manager {
	return &gameManager{
		repo:       repo,
		characters: characters,
	}
}

type gameManager struct {
	repo       Repo
	characters CharacterService
}

var tracer = otel.Tracer("roundsettle")

// ReconcileBatch applies the round updates and commits them as a single transaction.
// Updates referencing characters that no longer exist are skipped and produce no result.
func (m *gameManager) ReconcileBatch(ctx context.Context, batch GameBatch) (results []GameUserUpdateResult, err error) {
	ctx, span := tracer.Start(ctx, "ReconcileBatch")
	defer func() {
		span.SetAttributes(attribute.Int("batch.results", len(results)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("batch.round_id", batch.RoundID.String()),
		attribute.Int("batch.updates", len(batch.Updates)),
	)

	if err := validateUpdates(batch.Updates); err != nil {
		return nil, err
	}
	if len(batch.Updates) == 0 {
		return []GameUserUpdateResult{}, nil
	}

	characterIDs := make([]uuid.UUID, 0, len(batch.Updates))
	for _, update := range batch.Updates {
		characterIDs = append(characterIDs, update.CharacterID)
	}

	err = m.repo.ApplyGameUpdates(ctx, batch.RoundID, characterIDs, func(resolved map[uuid.UUID]*User) error {
		results = m.applyUpdates(batch.Updates, resolved)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile round %v: %w", batch.RoundID, err)
	}

	Log("round %v reconciled: %v updates, %v results", batch.RoundID, len(batch.Updates), len(results))
	return results, nil
}

func (m *gameManager) applyUpdates(updates []GameUserUpdate, resolved map[uuid.UUID]*User) []GameUserUpdateResult {
	results := make([]GameUserUpdateResult, 0, len(updates))
	for _, update := range updates {
		user, ok := resolved[update.CharacterID]
		if !ok {
			Log("character %v not found, skip its update", update.CharacterID)
			continue
		}
		character := user.Character(update.CharacterID)

		reward := applyReward(user, character, update, m.characters)
		repaired := repairOrBreakItems(user, update.BrokenItems)

		results = append(results, GameUserUpdateResult{
			User:            snapshotGameUser(user, character),
			EffectiveReward: reward,
			RepairedItems:   repaired,
		})
	}
	return results
}

// snapshotGameUser copies the state at the time the update was processed,
// later updates of the same user in the batch must not leak into it
func snapshotGameUser(user *User, character *Character) GameUser {
	c := *character
	c.EquippedItems = make([]*EquippedItem, 0, len(character.EquippedItems))
	for _, ei := range character.EquippedItems {
		item := *ei.UserItem
		c.EquippedItems = append(c.EquippedItems, &EquippedItem{
			CharacterID: ei.CharacterID,
			Slot:        ei.Slot,
			UserItem:    &item,
		})
	}
	restrictions := make([]Restriction, len(user.Restrictions))
	copy(restrictions, user.Restrictions)
	return GameUser{
		ID:                   user.ID,
		Platform:             user.Platform,
		PlatformUserID:       user.PlatformUserID,
		Gold:                 user.Gold,
		ExperienceMultiplier: user.ExperienceMultiplier,
		Restrictions:         restrictions,
		Character:            &c,
	}
}

// validateUpdates rejects batches that break the caller contract
func validateUpdates(updates []GameUserUpdate) error {
	seen := map[uuid.UUID]interface{}{}
	for i, update := range updates {
		if update.CharacterID == uuid.Nil {
			return fmt.Errorf("%w: update %v has no character id", ErrMalformedBatch, i)
		}
		if _, ok := seen[update.CharacterID]; ok {
			return fmt.Errorf("%w: character %v appears more than once", ErrMalformedBatch, update.CharacterID)
		}
		seen[update.CharacterID] = nil

		if update.Reward.Experience < 0 || update.Reward.Gold < 0 {
			return fmt.Errorf("%w: character %v has a negative reward", ErrMalformedBatch, update.CharacterID)
		}
		s := update.Statistics
		if s.Kills < 0 || s.Deaths < 0 || s.Assists < 0 || s.PlayTime < 0 {
			return fmt.Errorf("%w: character %v has negative statistics", ErrMalformedBatch, update.CharacterID)
		}
		damaged := map[uuid.UUID]interface{}{}
		for _, d := range update.BrokenItems {
			if d.UserItemID == uuid.Nil {
				return fmt.Errorf("%w: character %v reported a damaged item without id", ErrMalformedBatch, update.CharacterID)
			}
			if _, ok := damaged[d.UserItemID]; ok {
				return fmt.Errorf("%w: character %v reported item %v more than once", ErrMalformedBatch, update.CharacterID, d.UserItemID)
			}
			damaged[d.UserItemID] = nil
			if d.RepairCost < 0 {
				return fmt.Errorf("%w: item %v has a negative repair cost", ErrMalformedBatch, d.UserItemID)
			}
		}
	}
	return nil
}

// GetUser returns the full user graph
func (m *gameManager) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return m.repo.GetUser(ctx, userID)
}

// PurgeRounds forgets round ids reconciled before olderThan
func (m *gameManager) PurgeRounds(ctx context.Context, olderThan time.Time) (int64, error) {
	n, err := m.repo.PurgeRounds(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	Log("purged %v reconciled rounds older than %v", n, olderThan.Format(time.RFC3339))
	return n, nil
}
