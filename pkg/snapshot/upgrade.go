package snapshot

import (
	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/routing"
)

// upgrades[v] lifts a document from version v to v+1.
var upgrades = map[Version]func(*document) error{
	V1: upgradeV1,
	V2: upgradeV2,
}

func upgrade(doc *document) error {
	if doc.Version < V1 || doc.Version > Current {
		return errors.Invalid(errors.ErrCodeUnsupportedSchema, "version", int(doc.Version),
			"snapshot for order %q has an unsupported schema version", doc.Order)
	}
	for doc.Version < Current {
		step, ok := upgrades[doc.Version]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "no upgrade from snapshot version %d", doc.Version)
		}
		if err := step(doc); err != nil {
			return err
		}
		doc.Version++
	}
	return nil
}

// upgradeV1 adds zero overlap caps. V1 only knew the none and transfer
// quantity policies.
func upgradeV1(doc *document) error {
	zeroSpan, zeroPct := int64(0), 0.0
	for i := range doc.Routings {
		rd := &doc.Routings[i]
		for j := range rd.Edges {
			ed := &rd.Edges[j]
			p, err := routing.ParseOverlapPolicy(ed.Overlap)
			if err != nil {
				return errors.Wrap(errors.ErrCodeCorruptSnapshot, err, "routing %s", rd.ExternalID)
			}
			if p != routing.OverlapNone && p != routing.OverlapTransferQty {
				return errors.Invalid(errors.ErrCodeCorruptSnapshot, "overlap", ed.Overlap,
					"routing %s: policy did not exist in schema version 1", rd.ExternalID)
			}
			if ed.OverlapTransferSpanNS == nil {
				ed.OverlapTransferSpanNS = &zeroSpan
			}
			if ed.OverlapPercentComplete == nil {
				ed.OverlapPercentComplete = &zeroPct
			}
		}
	}
	return nil
}

// upgradeV2 adds the transfer points, which did not exist before V3.
// Missing points mean no transfer.
func upgradeV2(doc *document) error {
	none := routing.TransferNone.String()
	for i := range doc.Routings {
		for j := range doc.Routings[i].Edges {
			ed := &doc.Routings[i].Edges[j]
			if ed.TransferStart == nil {
				ed.TransferStart = &none
			}
			if ed.TransferEnd == nil {
				ed.TransferEnd = &none
			}
		}
	}
	return nil
}
