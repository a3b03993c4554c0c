package models

// RosterSlot is a named lineup slot with the positions allowed to fill it.
type RosterSlot struct {
	Name      string   `json:"name"`
	Positions []string `json:"positions"`
}

// Accepts reports whether the player is position-eligible for the slot.
func (s RosterSlot) Accepts(p *Player) bool {
	return p.EligibleFor(s.Positions)
}

// SlotList is the ordered slot layout of a slate, persisted on the Slate as a
// JSON column.
type SlotList []RosterSlot

// ClassicSlots returns the classic roster layout for a sport.
func ClassicSlots(sport string) SlotList {
	switch sport {
	case "nfl":
		return SlotList{
			{Name: "QB", Positions: []string{"QB"}},
			{Name: "RB1", Positions: []string{"RB"}},
			{Name: "RB2", Positions: []string{"RB"}},
			{Name: "WR1", Positions: []string{"WR"}},
			{Name: "WR2", Positions: []string{"WR"}},
			{Name: "WR3", Positions: []string{"WR"}},
			{Name: "TE", Positions: []string{"TE"}},
			{Name: "FLEX", Positions: []string{"RB", "WR", "TE"}},
			{Name: "DEF", Positions: []string{"DEF"}},
		}
	case "nba":
		return SlotList{
			{Name: "PG", Positions: []string{"PG"}},
			{Name: "SG", Positions: []string{"SG"}},
			{Name: "SF", Positions: []string{"SF"}},
			{Name: "PF", Positions: []string{"PF"}},
			{Name: "C", Positions: []string{"C"}},
			{Name: "G", Positions: []string{"PG", "SG"}},
			{Name: "F", Positions: []string{"SF", "PF"}},
			{Name: "UTIL", Positions: []string{"PG", "SG", "SF", "PF", "C"}},
		}
	case "mlb":
		return SlotList{
			{Name: "P1", Positions: []string{"P"}},
			{Name: "P2", Positions: []string{"P"}},
			{Name: "C", Positions: []string{"C"}},
			{Name: "1B", Positions: []string{"1B"}},
			{Name: "2B", Positions: []string{"2B"}},
			{Name: "3B", Positions: []string{"3B"}},
			{Name: "SS", Positions: []string{"SS"}},
			{Name: "OF1", Positions: []string{"OF"}},
			{Name: "OF2", Positions: []string{"OF"}},
			{Name: "OF3", Positions: []string{"OF"}},
		}
	case "nhl":
		return SlotList{
			{Name: "C1", Positions: []string{"C"}},
			{Name: "C2", Positions: []string{"C"}},
			{Name: "W1", Positions: []string{"W"}},
			{Name: "W2", Positions: []string{"W"}},
			{Name: "W3", Positions: []string{"W"}},
			{Name: "D1", Positions: []string{"D"}},
			{Name: "D2", Positions: []string{"D"}},
			{Name: "G", Positions: []string{"G"}},
			{Name: "UTIL", Positions: []string{"C", "W", "D"}},
		}
	}
	return nil
}

// SingleGameSlots returns the 1-captain + 4-flex layout used by single-game
// contests. Eligibility is over the variant positions produced by the
// single-game pool transform.
func SingleGameSlots() SlotList {
	return SlotList{
		{Name: "CAPTAIN", Positions: []string{string(VariantCaptain)}},
		{Name: "FLEX1", Positions: []string{string(VariantFlex)}},
		{Name: "FLEX2", Positions: []string{string(VariantFlex)}},
		{Name: "FLEX3", Positions: []string{string(VariantFlex)}},
		{Name: "FLEX4", Positions: []string{string(VariantFlex)}},
	}
}
