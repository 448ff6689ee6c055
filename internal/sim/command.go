package sim

import (
	"time"

	"warchief/server/internal/macro"
)

// CommandType enumerates the intents the loop applies to the macro engine.
type CommandType string

const (
	CommandStartMacro CommandType = "StartMacro"
	CommandStopMacro  CommandType = "StopMacro"
)

// StartCommand carries the definition to play. The engine copies it on
// apply, so later edits to the stored macro never reach the run.
type StartCommand struct {
	Definition macro.Definition `json:"-"`
	MacroID    string           `json:"macroId"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Start      *StartCommand `json:"start,omitempty"`
}

// StartMacro builds a command that plays def for characterID.
func StartMacro(characterID string, def macro.Definition, issuedAt time.Time) Command {
	return Command{
		ActorID:  characterID,
		Type:     CommandStartMacro,
		IssuedAt: issuedAt,
		Start:    &StartCommand{Definition: def, MacroID: def.ID},
	}
}

// StopMacro builds a command that cancels characterID's run.
func StopMacro(characterID string, issuedAt time.Time) Command {
	return Command{ActorID: characterID, Type: CommandStopMacro, IssuedAt: issuedAt}
}
