package main

import (
	"time"

	"github.com/gofrs/uuid"
)

// BrokenRank marks a user item that can't be used until it is restored
const BrokenRank = -1

// Platform the user account comes from
type Platform string

const (
	// Steam account
	Steam Platform = "steam"
	// Epic account
	Epic Platform = "epic"
)

// ItemSlot is a character equipment slot
type ItemSlot string

const (
	Head         ItemSlot = "head"
	Shoulder     ItemSlot = "shoulder"
	Body         ItemSlot = "body"
	Hand         ItemSlot = "hand"
	Leg          ItemSlot = "leg"
	MountHarness ItemSlot = "mountHarness"
	Mount        ItemSlot = "mount"
	Weapon0      ItemSlot = "weapon0"
	Weapon1      ItemSlot = "weapon1"
	Weapon2      ItemSlot = "weapon2"
	Weapon3      ItemSlot = "weapon3"
	WeaponExtra  ItemSlot = "weaponExtra"
)

var itemSlots = map[ItemSlot]interface{}{
	Head: nil, Shoulder: nil, Body: nil, Hand: nil, Leg: nil, MountHarness: nil, Mount: nil,
	Weapon0: nil, Weapon1: nil, Weapon2: nil, Weapon3: nil, WeaponExtra: nil,
}

// User owns gold, items and characters
type User struct {
	ID                   uuid.UUID     `json:"id"`
	Platform             Platform      `json:"platform"`
	PlatformUserID       string        `json:"platformUserId"`
	Gold                 int           `json:"gold"`
	ExperienceMultiplier float64       `json:"experienceMultiplier"`
	Restrictions         []Restriction `json:"restrictions"`
	Items                []*UserItem   `json:"items"`
	Characters           []*Character  `json:"characters"`
}

// RestrictionType what a restriction forbids
type RestrictionType string

const (
	// JoinRestriction forbids joining game servers
	JoinRestriction RestrictionType = "join"
	// ChatRestriction forbids chatting in game
	ChatRestriction RestrictionType = "chat"
)

// Restriction is a sanction put on a user for a limited duration
type Restriction struct {
	ID        uuid.UUID       `json:"id"`
	Type      RestrictionType `json:"type"`
	Reason    string          `json:"reason"`
	Duration  time.Duration   `json:"duration"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ActiveAt reports whether the restriction still applies at t
func (r Restriction) ActiveAt(t time.Time) bool {
	return r.CreatedAt.Add(r.Duration).After(t)
}

// Item returns the user item with the given id or nil
func (u *User) Item(id uuid.UUID) *UserItem {
	for _, item := range u.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Character returns the user character with the given id or nil
func (u *User) Character(id uuid.UUID) *Character {
	for _, c := range u.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// UserItem is the user copy of a catalog item.
// It belongs to the user, so several characters can equip it at once.
type UserItem struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	BaseItemID string    `json:"baseItemId"`
	Rank       int       `json:"rank"`
}

// Broken reports whether the item is unusable
func (i *UserItem) Broken() bool {
	return i.Rank == BrokenRank
}

// Character contains progression and equipment of one user character
type Character struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"userId"`
	Name          string              `json:"name"`
	Experience    int                 `json:"experience"`
	Level         int                 `json:"level"`
	Statistics    CharacterStatistics `json:"statistics"`
	Rating        CharacterRating     `json:"rating"`
	EquippedItems []*EquippedItem     `json:"equippedItems"`
}

// CharacterStatistics cumulative combat statistics
type CharacterStatistics struct {
	Kills    int           `json:"kills"`
	Deaths   int           `json:"deaths"`
	Assists  int           `json:"assists"`
	PlayTime time.Duration `json:"playTime"`
}

// CharacterRating skill rating snapshot
type CharacterRating struct {
	Value      float64 `json:"value"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

// EquippedItem assigns a user item to a character slot
type EquippedItem struct {
	CharacterID uuid.UUID `json:"characterId"`
	Slot        ItemSlot  `json:"slot"`
	UserItem    *UserItem `json:"userItem"`
}

// GameUserReward reward granted to a character for a round
type GameUserReward struct {
	Experience int `json:"experience"`
	Gold       int `json:"gold"`
}

// GameUserDamagedItem item damaged during a round
type GameUserDamagedItem struct {
	UserItemID uuid.UUID `json:"userItemId"`
	RepairCost int       `json:"repairCost"`
}

// GameUserUpdate round outcome of one character
type GameUserUpdate struct {
	CharacterID uuid.UUID             `json:"characterId"`
	Reward      GameUserReward        `json:"reward"`
	Statistics  CharacterStatistics   `json:"statistics"`
	Rating      CharacterRating       `json:"rating"`
	BrokenItems []GameUserDamagedItem `json:"brokenItems"`
}

// GameUserEffectiveReward reward actually recorded for a character
type GameUserEffectiveReward struct {
	Experience int  `json:"experience"`
	Gold       int  `json:"gold"`
	LevelUp    bool `json:"levelUp"`
}

// GameUserRepairedItem outcome of a damaged item
type GameUserRepairedItem struct {
	UserItemID uuid.UUID `json:"userItemId"`
	RepairCost int       `json:"repairCost"`
	Broke      bool      `json:"broke"`
}

// GameUser is the user snapshot returned for one processed character
type GameUser struct {
	ID                   uuid.UUID     `json:"id"`
	Platform             Platform      `json:"platform"`
	PlatformUserID       string        `json:"platformUserId"`
	Gold                 int           `json:"gold"`
	ExperienceMultiplier float64       `json:"experienceMultiplier"`
	Restrictions         []Restriction `json:"restrictions"`
	Character            *Character    `json:"character"`
}

// GameUserUpdateResult result of one processed update
type GameUserUpdateResult struct {
	User            GameUser                `json:"user"`
	EffectiveReward GameUserEffectiveReward `json:"effectiveReward"`
	RepairedItems   []GameUserRepairedItem  `json:"repairedItems"`
}

// GameBatch updates produced by one round.
// A nil RoundID disables replay detection.
type GameBatch struct {
	RoundID uuid.UUID        `json:"roundId"`
	Updates []GameUserUpdate `json:"updates"`
}
