package apitests

import (
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/verax-qa/verax/assertions"
	"github.com/verax-qa/verax/data"
	"github.com/verax-qa/verax/docdb"
	"github.com/verax-qa/verax/restclient"
)

// DoDataDrivenTests fetches each user named in the input files and verifies
// the API state against the expected values.
func DoDataDrivenTests(t *T) {
	t.Run("users from csv", func(t *T) {
		rows, err := data.LoadCSV(filepath.Join(t.Config().Data.Dir, "csv", "users.csv"))
		if err != nil {
			t.Errorf("loading input rows: %s", err)
			t.FailNow()
		}

		t.ForEachRow(rows, "id", func(t *T, row data.Row) {
			checkUserMatchesRow(t, row)
		})
	})

	t.Run("users from json", func(t *T) {
		rows, err := data.LoadJSON(filepath.Join(t.Config().Data.Dir, "json", "users.json"))
		if err != nil {
			t.Errorf("loading input rows: %s", err)
			t.FailNow()
		}

		t.ForEachRow(rows, "id", func(t *T, row data.Row) {
			checkUserMatchesRow(t, row)

			resp := fetchUser(t, row.String("id"))
			soft := assertions.Soft(t, resp)
			if row.Has("age") {
				soft.HasJSONValue("age", row.Int("age"))
			}
			if row.Has("active") {
				soft.HasJSONValue("active", row.Bool("active"))
			}
			soft.AssertAll()
		})
	})

	t.Run("users from document store", func(t *T) {
		db := t.RequireDocDB()
		expected, err := os.ReadFile(filepath.Join(t.Config().Data.Dir, "json", "users-docs.json"))
		if err != nil {
			t.Errorf("loading expected documents: %s", err)
			t.FailNow()
		}

		docs, err := db.Find(t.Ctx(), bson.M{})
		if err != nil {
			t.Errorf("querying document store: %s", err)
			t.FailNow()
		}
		if err := docdb.MatchesExpectedJSON(docs, string(expected)); err != nil {
			t.Errorf("document store state does not match: %s", err)
		}
	})

	t.Run("users from database", func(t *T) {
		db := t.RequireSQL()
		rows, err := data.FromSQL(t.Ctx(), db, "SELECT id, name, email FROM users ORDER BY id")
		if err != nil {
			t.Errorf("loading input rows: %s", err)
			t.FailNow()
		}

		t.ForEachRow(rows, "id", func(t *T, row data.Row) {
			checkUserMatchesRow(t, row)
		})
	})
}

func fetchUser(t *T, id string) *restclient.Response {
	resp, err := t.Client().Get("/users/{id}").PathParam("id", id).Send(t.Ctx())
	if err != nil {
		t.Errorf("request failed: %s", err)
		t.FailNow()
	}
	return resp
}

func checkUserMatchesRow(t *T, row data.Row) {
	resp := fetchUser(t, row.String("id"))
	t.AttachJSON("response", resp.Body)

	assertions.Response(t, resp).
		HasStatus(200).
		HasJSONString("id", row.String("id")).
		HasJSONString("name", row.String("name")).
		HasJSONString("email", row.String("email"))
}
