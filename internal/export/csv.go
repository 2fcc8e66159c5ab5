package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/namrata935/polycentric-el/internal/domain/model"
)

// WriteCSV writes one row per zone with a header line.
func WriteCSV(w io.Writer, zones []model.Zone) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(model.Zone{}); err != nil {
		return eris.Wrap(err, "export: encode csv header")
	}
	for _, z := range zones {
		if err := enc.Encode(z); err != nil {
			return eris.Wrapf(err, "export: encode zone (%v, %v)", z.ZoneLat, z.ZoneLon)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
