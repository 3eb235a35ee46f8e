package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/franela/goblin"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/service"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
)

func newTestServer(t *testing.T, g *goblin.G) *echo.Echo {
	logger := zap.NewNop().Sugar()
	env := &conf.Env{
		Logger:     logger,
		Env:        "test",
		Port:       "0",
		CacheSize:  100,
		Partitions: conf.PartitionConfig{HorizonMonths: 2},
		Database: conf.DatabaseConfig{
			Driver:         "sqlite",
			Url:            "file:" + filepath.Join(t.TempDir(), "variables.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
			MaxOpenConns:   4,
			ConnectTimeout: 5 * time.Second,
			AutoMigrate:    true,
		},
	}
	client := &statsd.NoOpClient{}
	lc := fxtest.NewLifecycle(t)
	db, err := store.NewDatabase(lc, env, logger)
	g.Assert(err).IsNil()

	entities := service.NewEntityService(lc, db, store.NewEntityStore(db, logger), store.NewPartitionProvisioner(db, env, logger), env, logger)
	instances := service.NewInstanceService(lc, store.NewInstanceStore(db, logger), entities, env, logger)
	variables := service.NewVariableService(store.NewVariableStore(db, client, logger), instances, logger)

	e := NewWebServer(env)
	Register(lc, env, e, NewMiddleware(logger, client), logger)
	NewEntityHandler(lc, e, logger, entities, instances)
	NewVariableHandler(lc, e, logger, variables)
	lc.RequireStart()
	t.Cleanup(func() {
		lc.RequireStop()
	})
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func created(g *goblin.G, rec *httptest.ResponseRecorder) string {
	g.Assert(rec.Code).Eql(http.StatusCreated)
	out := map[string]interface{}{}
	g.Assert(json.Unmarshal(rec.Body.Bytes(), &out)).IsNil()
	return out["id"].(string)
}

func TestHandlers(t *testing.T) {
	g := goblin.Goblin(t)
	var e *echo.Echo

	g.Describe("The entity endpoints", func() {
		g.BeforeEach(func() {
			e = newTestServer(t, g)
		})

		g.It("Should answer health checks", func() {
			rec := do(e, http.MethodGet, "/health", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			g.Assert(rec.Body.String()).Eql("UP")
		})

		g.It("Should create and look up entities", func() {
			id := created(g, do(e, http.MethodPost, "/entities", `{"name":"customer","displayName":"Customer"}`))

			rec := do(e, http.MethodGet, "/entities/"+id, "")
			g.Assert(rec.Code).Eql(http.StatusOK)

			rec = do(e, http.MethodGet, "/entities/by-name/customer", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			byName := map[string]interface{}{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &byName)).IsNil()
			g.Assert(byName["id"]).Eql(id)
			g.Assert(byName["displayName"]).Eql("Customer")

			rec = do(e, http.MethodGet, "/entities/"+id+"/partitions", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			var partitions []map[string]interface{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &partitions)).IsNil()
			g.Assert(len(partitions)).Eql(5)
		})

		g.It("Should map invalid input, conflicts and unknown ids", func() {
			g.Assert(do(e, http.MethodPost, "/entities", `{"name":""}`).Code).Eql(http.StatusBadRequest)
			created(g, do(e, http.MethodPost, "/entities", `{"name":"customer"}`))
			g.Assert(do(e, http.MethodPost, "/entities", `{"name":"customer"}`).Code).Eql(http.StatusConflict)
			g.Assert(do(e, http.MethodGet, "/entities/not-a-uuid", "").Code).Eql(http.StatusBadRequest)
			g.Assert(do(e, http.MethodGet, "/entities/"+uuid.NewString(), "").Code).Eql(http.StatusNotFound)
			g.Assert(do(e, http.MethodPost, "/entities/"+uuid.NewString()+"/instances", `{}`).Code).Eql(http.StatusNotFound)
		})

		g.It("Should create instances of an entity", func() {
			entityID := created(g, do(e, http.MethodPost, "/entities", `{"name":"customer"}`))
			correlation := uuid.NewString()
			id := created(g, do(e, http.MethodPost, "/entities/"+entityID+"/instances",
				`{"uuid":"`+correlation+`","status":"INACTIVE","context":{"source":"test"}}`))

			rec := do(e, http.MethodGet, "/instances/"+id, "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			instance := map[string]interface{}{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &instance)).IsNil()
			g.Assert(instance["uuid"]).Eql(correlation)
			g.Assert(instance["status"]).Eql("INACTIVE")

			g.Assert(do(e, http.MethodPost, "/entities/"+entityID+"/instances", `{"status":"GONE"}`).Code).Eql(http.StatusBadRequest)

			rec = do(e, http.MethodGet, "/entities/"+entityID+"/instances", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			var listed []map[string]interface{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &listed)).IsNil()
			g.Assert(len(listed)).Eql(1)
		})
	})

	g.Describe("The variable endpoints", func() {
		var instanceID string
		g.BeforeEach(func() {
			e = newTestServer(t, g)
			entityID := created(g, do(e, http.MethodPost, "/entities", `{"name":"customer"}`))
			instanceID = created(g, do(e, http.MethodPost, "/entities/"+entityID+"/instances", `{}`))
		})

		g.It("Should save a posted batch and read it back", func() {
			body := `[
				{"name": "email", "type": "STRING", "value": "a@b.c", "indexed": true},
				{"name": "age", "type": "INTEGER", "value": 42},
				{"name": "settings", "type": "JSON", "value": {"theme": "dark", "notifications": true}}
			]`
			rec := do(e, http.MethodPost, "/instances/"+instanceID+"/variables?batchSize=2", body)
			g.Assert(rec.Code).Eql(http.StatusCreated)
			var saved []map[string]interface{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &saved)).IsNil()
			g.Assert(len(saved)).Eql(3)

			rec = do(e, http.MethodGet, "/instances/"+instanceID+"/variables", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			var listed []map[string]interface{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &listed)).IsNil()
			g.Assert(len(listed)).Eql(3)
			// ordered by name
			g.Assert(listed[0]["name"]).Eql("age")

			rec = do(e, http.MethodGet, "/instances/"+instanceID+"/variables?format=map", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			values := map[string]interface{}{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &values)).IsNil()
			g.Assert(values["email"]).Eql("a@b.c")
			g.Assert(values["age"]).Eql(float64(42))
			g.Assert(values["settings"]).Eql(map[string]interface{}{"theme": "dark", "notifications": true})

			rec = do(e, http.MethodGet, "/instances/"+instanceID+"/variables/email", "")
			g.Assert(rec.Code).Eql(http.StatusOK)
			one := map[string]interface{}{}
			g.Assert(json.Unmarshal(rec.Body.Bytes(), &one)).IsNil()
			g.Assert(one["type"]).Eql("STRING")
			g.Assert(one["indexed"]).IsTrue()
		})

		g.It("Should answer 404 for a missing variable or instance", func() {
			g.Assert(do(e, http.MethodGet, "/instances/"+instanceID+"/variables/missing", "").Code).Eql(http.StatusNotFound)
			g.Assert(do(e, http.MethodGet, "/instances/"+uuid.NewString()+"/variables", "").Code).Eql(http.StatusNotFound)
			g.Assert(do(e, http.MethodPost, "/instances/"+uuid.NewString()+"/variables", `[]`).Code).Eql(http.StatusNotFound)
		})

		g.It("Should reject unsupported types and malformed values", func() {
			rec := do(e, http.MethodPost, "/instances/"+instanceID+"/variables", `[{"name": "price", "type": "DECIMAL", "value": 1}]`)
			g.Assert(rec.Code).Eql(http.StatusBadRequest)
			rec = do(e, http.MethodPost, "/instances/"+instanceID+"/variables", `[{"name": "age", "type": "INTEGER", "value": 30.5}]`)
			g.Assert(rec.Code).Eql(http.StatusBadRequest)
			for _, body := range []string{
				`[{"name": "active", "type": "BOOLEAN", "value": 42}]`,
				`[{"name": "score", "type": "FLOAT", "value": "3.5"}]`,
				`[{"name": "age", "type": "INTEGER", "value": 1e20}]`,
			} {
				rec = do(e, http.MethodPost, "/instances/"+instanceID+"/variables", body)
				g.Assert(rec.Code).Eql(http.StatusBadRequest)
			}
			rec = do(e, http.MethodPost, "/instances/"+instanceID+"/variables?batchSize=x", `[]`)
			g.Assert(rec.Code).Eql(http.StatusBadRequest)

			rec = do(e, http.MethodGet, "/instances/"+instanceID+"/variables", "")
			g.Assert(rec.Body.String()).Eql("[]\n")
		})
	})
}
