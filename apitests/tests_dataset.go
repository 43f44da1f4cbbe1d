package apitests

import (
	"path/filepath"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"

	"github.com/verax-qa/verax/dataset"
)

// DoDatasetValidationTests runs pipelines over the bulk data files and
// verifies counts and aggregates after cleansing.
func DoDatasetValidationTests(t *T) {
	ordersPath := filepath.Join(t.Config().Data.Dir, "dataset", "orders.csv")

	t.Run("orders file is readable", func(t *T) {
		p, s := beam.NewPipelineWithRoot()
		records, header, err := dataset.ReadCSV(t.Ctx(), s, ordersPath)
		if err != nil {
			t.Errorf("reading dataset: %s", err)
			t.FailNow()
		}
		if len(header) == 0 {
			t.Errorf("dataset has no columns")
			t.FailNow()
		}

		dataset.ExpectRowCount(s, records, 6)
		if err := dataset.Execute(t.Ctx(), p); err != nil {
			t.Errorf("pipeline failed: %s", err)
		}
	})

	t.Run("cleansing removes incomplete and duplicate orders", func(t *T) {
		p, s := beam.NewPipelineWithRoot()
		records, _, err := dataset.ReadCSV(t.Ctx(), s, ordersPath)
		if err != nil {
			t.Errorf("reading dataset: %s", err)
			t.FailNow()
		}

		cleansed := dataset.Cleanse(s, records, "id", "region", "total")
		dataset.ExpectRowCount(s, cleansed, 3)
		dataset.ExpectColumnValues(s, cleansed, "id", "o1", "o2", "o3")
		if err := dataset.Execute(t.Ctx(), p); err != nil {
			t.Errorf("pipeline failed: %s", err)
		}
	})

	t.Run("totals aggregate per region", func(t *T) {
		p, s := beam.NewPipelineWithRoot()
		records, _, err := dataset.ReadCSV(t.Ctx(), s, ordersPath)
		if err != nil {
			t.Errorf("reading dataset: %s", err)
			t.FailNow()
		}

		cleansed := dataset.Cleanse(s, records, "id", "region", "total")
		dataset.ExpectAggregates(s, dataset.SumBy(s, cleansed, "region", "total"),
			map[string]float64{"south": 15, "north": 20})
		dataset.ExpectAggregates(s, dataset.CountBy(s, cleansed, "region"),
			map[string]float64{"south": 2, "north": 1})
		if err := dataset.Execute(t.Ctx(), p); err != nil {
			t.Errorf("pipeline failed: %s", err)
		}
	})
}
