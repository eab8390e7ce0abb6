package chain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract members the game master depends on.
const (
	MethodCharacters       = "characters"
	MethodResolveAdventure = "resolveAdventure"
	EventNewHeroRequested  = "NewHeroRequested"
	EventAdventureRequest  = "AdventureRequested"
)

var ErrABIMissingMember = errors.New("contract ABI is missing a required member")

// LoadABI reads and validates the contract ABI from disk.
func LoadABI(path string) (abi.ABI, error) {
	f, err := os.Open(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to open ABI %s: %w", path, err)
	}
	defer f.Close()

	return ParseABI(f)
}

// ParseABI decodes an ABI document and checks that every member used by the
// gateway and event sources is present.
func ParseABI(r io.Reader) (abi.ABI, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	var missing []string
	for _, m := range []string{MethodCharacters, MethodResolveAdventure} {
		if _, ok := parsed.Methods[m]; !ok {
			missing = append(missing, m)
		}
	}
	for _, e := range []string{EventNewHeroRequested, EventAdventureRequest} {
		if _, ok := parsed.Events[e]; !ok {
			missing = append(missing, e)
		}
	}
	if len(missing) > 0 {
		return abi.ABI{}, fmt.Errorf("%w: %s", ErrABIMissingMember, strings.Join(missing, ", "))
	}
	return parsed, nil
}
