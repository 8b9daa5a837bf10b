package processor

import (
	"fmt"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/state"
)

// authorized is a record pair that passed every precondition for a
// mutation by payer.
type authorized struct {
	metadataInfo *ledger.AccountInfo
	payer        *ledger.AccountInfo
	metadata     state.JsonMetadata
}

// authorize runs the shared precondition chain. json is nil when the
// operation addresses only the metadata record.
func authorize( // A
	programID ledger.Address,
	json *ledger.AccountInfo,
	jsonKey ledger.Address,
	metadataInfo *ledger.AccountInfo,
	payer *ledger.AccountInfo,
	system *ledger.AccountInfo,
) (*authorized, error) {
	if json != nil && !isInitialized(json, programID) {
		return nil, fmt.Errorf("%w: json record %s", NotInitialized, json.Key)
	}
	if !isInitialized(metadataInfo, programID) {
		return nil, fmt.Errorf("%w: metadata record %s", NotInitialized, metadataInfo.Key)
	}
	metadata, err := state.DecodeJsonMetadata(metadataInfo.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidAccountData, err)
	}

	bump, err := address.AssertDerivation(programID, metadataInfo.Key, jsonKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", MetadataDerivedKeyInvalid, err)
	}
	if bump != metadata.Bump {
		return nil, fmt.Errorf(
			"%w: stored bump %d, derived %d",
			MetadataDerivedKeyInvalid, metadata.Bump, bump,
		)
	}

	if !payer.IsSigner {
		return nil, fmt.Errorf("%w: payer %s", ledger.ErrMissingRequiredSignature, payer.Key)
	}
	if !metadata.HasAuthority(payer.Key) {
		return nil, fmt.Errorf("%w: %s", InvalidAuthority, payer.Key)
	}
	if !system.Key.Equals(ledger.SystemProgramID) {
		return nil, fmt.Errorf("%w: %s", InvalidSystemProgram, system.Key)
	}

	return &authorized{
		metadataInfo: metadataInfo,
		payer:        payer,
		metadata:     metadata,
	}, nil
}

func isInitialized(info *ledger.AccountInfo, programID ledger.Address) bool {
	return info.IsOwnedBy(programID) && !info.DataIsEmpty()
}

func isUnclaimed(info *ledger.AccountInfo) bool {
	return info.IsOwnedBy(ledger.SystemProgramID) && info.DataIsEmpty()
}
