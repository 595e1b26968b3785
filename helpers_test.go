package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
)

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

func newTestDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("Failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// newUserWithItems builds a user owning one item per base item id
func newUserWithItems(gold int, baseItemIDs ...string) *User {
	user := &User{ID: newID(), Platform: Steam, PlatformUserID: "1", Gold: gold, ExperienceMultiplier: 1, Restrictions: []Restriction{}}
	for _, baseID := range baseItemIDs {
		user.Items = append(user.Items, &UserItem{ID: newID(), UserID: user.ID, BaseItemID: baseID})
	}
	return user
}

func (u *User) addCharacter(name string, equip map[ItemSlot]*UserItem) *Character {
	c := &Character{ID: newID(), UserID: u.ID, Name: name, Level: 1}
	for _, slot := range []ItemSlot{Head, Shoulder, Body, Hand, Leg, MountHarness, Mount, Weapon0, Weapon1, Weapon2, Weapon3, WeaponExtra} {
		if item, ok := equip[slot]; ok {
			c.EquippedItems = append(c.EquippedItems, &EquippedItem{CharacterID: c.ID, Slot: slot, UserItem: item})
		}
	}
	u.Characters = append(u.Characters, c)
	return c
}

func equippedItemIDs(c *Character) []uuid.UUID {
	ids := []uuid.UUID{}
	for _, ei := range c.EquippedItems {
		ids = append(ids, ei.UserItem.ID)
	}
	return ids
}

// cloneUser deep copies a user graph keeping item sharing between characters
func cloneUser(u *User) *User {
	clone := *u
	clone.Restrictions = append([]Restriction{}, u.Restrictions...)
	items := map[uuid.UUID]*UserItem{}
	clone.Items = nil
	for _, item := range u.Items {
		c := *item
		items[c.ID] = &c
		clone.Items = append(clone.Items, &c)
	}
	clone.Characters = nil
	for _, character := range u.Characters {
		c := *character
		c.EquippedItems = nil
		for _, ei := range character.EquippedItems {
			c.EquippedItems = append(c.EquippedItems, &EquippedItem{CharacterID: ei.CharacterID, Slot: ei.Slot, UserItem: items[ei.UserItem.ID]})
		}
		clone.Characters = append(clone.Characters, &c)
	}
	return &clone
}

// mockRepo keeps graphs in memory and emulates a transaction by working on copies
type mockRepo struct {
	users      map[uuid.UUID]*User
	rounds     map[uuid.UUID]time.Time
	commitErr  error
	applyCalls int
}

func newMockRepo(users ...*User) *mockRepo {
	r := &mockRepo{users: map[uuid.UUID]*User{}, rounds: map[uuid.UUID]time.Time{}}
	for _, u := range users {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func (r *mockRepo) CreateUser(ctx context.Context, user *User) error {
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *mockRepo) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *mockRepo) GetCharacter(ctx context.Context, characterID uuid.UUID) (*Character, error) {
	for _, u := range r.users {
		if c := u.Character(characterID); c != nil {
			return cloneUser(u).Character(characterID), nil
		}
	}
	return nil, ErrCharacterNotFound
}

func (r *mockRepo) ApplyGameUpdates(ctx context.Context, roundID uuid.UUID, characterIDs []uuid.UUID, apply applyFunc) error {
	r.applyCalls++
	if _, ok := r.rounds[roundID]; ok && roundID != uuid.Nil {
		return ErrRoundAlreadyReconciled
	}
	working := map[uuid.UUID]*User{}
	resolved := map[uuid.UUID]*User{}
	for _, characterID := range characterIDs {
		for id, u := range r.users {
			if u.Character(characterID) == nil {
				continue
			}
			if _, ok := working[id]; !ok {
				working[id] = cloneUser(u)
			}
			resolved[characterID] = working[id]
		}
	}
	if err := apply(resolved); err != nil {
		return err
	}
	if r.commitErr != nil {
		return r.commitErr
	}
	for id, u := range working {
		r.users[id] = u
	}
	if roundID != uuid.Nil {
		r.rounds[roundID] = time.Now()
	}
	return nil
}

func (r *mockRepo) PurgeRounds(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	for id, at := range r.rounds {
		if at.Before(olderThan) {
			delete(r.rounds, id)
			n++
		}
	}
	return n, nil
}

var errStoreUnavailable = errors.New("store unavailable")

// characterServiceMock stands in for the leveling curve
type characterServiceMock struct {
	mock.Mock
}

func (m *characterServiceMock) GiveExperience(c *Character, amount int) bool {
	args := m.Called(c, amount)
	return args.Bool(0)
}

// noLeveling grants experience without ever leveling up
func noLeveling() *characterServiceMock {
	m := &characterServiceMock{}
	m.On("GiveExperience", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*Character).Experience += args.Int(1)
	}).Return(false)
	return m
}
