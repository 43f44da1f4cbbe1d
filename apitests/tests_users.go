package apitests

import (
	"fmt"
	"time"

	"github.com/verax-qa/verax/assertions"
)

// DoUserAPITests verifies the CRUD surface of the users endpoint.
func DoUserAPITests(t *T) {
	t.Run("fetch user by id", func(t *T) {
		resp, err := t.Client().Get("/users/{id}").
			PathParam("id", "u1").
			Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}
		t.AttachJSON("response", resp.Body)

		assertions.Response(t, resp).
			HasStatus(200).
			HasContentType("application/json").
			HasJSONString("id", "u1").
			HasJSONPath("name").
			HasJSONPath("email")
	})

	t.Run("missing user returns 404", func(t *T) {
		resp, err := t.Client().Get("/users/{id}").
			PathParam("id", "does-not-exist").
			Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}

		assertions.Response(t, resp).HasStatus(404)
	})

	t.Run("create user", func(t *T) {
		email := fmt.Sprintf("new-%d@example.com", time.Now().UnixNano())
		resp, err := t.Client().Post("/users").
			JSONBody(map[string]interface{}{
				"name":  "New User",
				"email": email,
			}).
			Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}
		t.AttachJSON("created user", resp.Body)

		soft := assertions.Soft(t, resp)
		soft.HasStatus(201).
			HasJSONPath("id").
			HasJSONString("name", "New User").
			HasJSONString("email", email)
		soft.AssertAll()

		id := resp.JSONString("id")
		t.Defer(func() {
			_, _ = t.Client().Delete("/users/{id}").PathParam("id", id).Send(t.Ctx())
		})

		fetched, err := t.Client().Get("/users/{id}").PathParam("id", id).Send(t.Ctx())
		if err != nil {
			t.Errorf("fetching created user failed: %s", err)
			t.FailNow()
		}
		assertions.Response(t, fetched).
			HasStatus(200).
			HasJSONString("email", email)
	})

	t.Run("update user", func(t *T) {
		resp, err := t.Client().Post("/users").
			JSONBody(map[string]interface{}{
				"name":  "Before Update",
				"email": "update-me@example.com",
			}).
			Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}
		assertions.Response(t, resp).HasStatus(201)
		id := resp.JSONString("id")
		t.Defer(func() {
			_, _ = t.Client().Delete("/users/{id}").PathParam("id", id).Send(t.Ctx())
		})

		updated, err := t.Client().Patch("/users/{id}").
			PathParam("id", id).
			JSONBody(map[string]interface{}{"name": "After Update"}).
			Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}

		assertions.Response(t, updated).
			HasStatus(200).
			HasJSONString("name", "After Update").
			HasJSONString("email", "update-me@example.com")
	})

	t.Run("delete user", func(t *T) {
		resp, err := t.Client().Post("/users").
			JSONBody(map[string]interface{}{
				"name":  "To Be Deleted",
				"email": "goner@example.com",
			}).
			Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}
		assertions.Response(t, resp).HasStatus(201)
		id := resp.JSONString("id")

		deleted, err := t.Client().Delete("/users/{id}").PathParam("id", id).Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}
		assertions.Response(t, deleted).HasStatus(204)

		fetched, err := t.Client().Get("/users/{id}").PathParam("id", id).Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}
		assertions.Response(t, fetched).HasStatus(404)
	})

	t.Run("list users", func(t *T) {
		resp, err := t.Client().Get("/users").Query("limit", "100").Send(t.Ctx())
		if err != nil {
			t.Errorf("request failed: %s", err)
			t.FailNow()
		}

		assertions.Response(t, resp).
			HasStatus(200).
			HasJSONPath("items")
		if resp.JSONCount("items") < 1 {
			t.Errorf("expected at least one user, got %d", resp.JSONCount("items"))
			t.FailNow()
		}
	})
}
