package refcheck

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ghetzel/go-stockutil/httputil"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/exists"
	"github.com/ghetzel/refcheck/filter"
	"github.com/ghetzel/refcheck/mapper"
	"github.com/ghetzel/refcheck/util"
	"github.com/husobee/vestigo"
	"github.com/urfave/negroni"
)

var DefaultAddress = `127.0.0.1`
var DefaultPort = 29029
var DefaultResultLimit = 25

type Server struct {
	Address          string
	ConnectionString string
	db               DB
	schemaDefs       []string
}

// Describes the existence checking of a single reference path, as returned by the schema endpoint.
type PathDescription struct {
	Path    string                 `json:"path"`
	Ref     string                 `json:"ref"`
	Exists  bool                   `json:"exists"`
	Refresh bool                   `json:"refresh"`
	Default bool                   `json:"default"`
	Select  []string               `json:"select"`
	Match   string                 `json:"match"`
	Options map[string]interface{} `json:"options"`
	Message string                 `json:"message"`
}

func NewServer(connectionString string) *Server {
	return &Server{
		Address:          fmt.Sprintf("%s:%d", DefaultAddress, DefaultPort),
		ConnectionString: connectionString,
	}
}

// Create a server around an existing database.
func NewServerWithDatabase(db DB) *Server {
	server := NewServer(``)
	server.db = db
	return server
}

func (self *Server) AddSchemaDefinition(filename string) {
	self.schemaDefs = append(self.schemaDefs, filename)
}

// Connect to the database (unless one was already given) and load all schema definitions.
func (self *Server) Initialize() error {
	if self.db == nil {
		if db, err := NewDatabase(self.ConnectionString); err == nil {
			self.db = db
		} else {
			return err
		}
	}

	// if specified, pre-load schema definitions
	for _, filename := range self.schemaDefs {
		if err := self.db.ApplySchemata(filename); err != nil {
			return err
		}
	}

	return nil
}

func (self *Server) Handler() http.Handler {
	server := negroni.New()
	mux := http.NewServeMux()
	router := vestigo.NewRouter()

	self.setupRoutes(router)
	mux.Handle(`/api/`, router)

	server.Use(negroni.NewRecovery())
	server.UseHandler(mux)

	return server
}

func (self *Server) ListenAndServe() error {
	if err := self.Initialize(); err != nil {
		return err
	}

	log.Infof("Listening at %v (backend: %v)", self.Address, self.db.GetBackend())
	return http.ListenAndServe(self.Address, self.Handler())
}

func (self *Server) setupRoutes(router *vestigo.Router) {
	router.SetGlobalCors(&vestigo.CorsAccessControl{
		AllowOrigin:      []string{"*"},
		AllowCredentials: true,
		AllowMethods:     []string{`GET`, `POST`},
		MaxAge:           3600 * time.Second,
		AllowHeaders:     []string{"*"},
	})

	router.Get(`/api/status`,
		func(w http.ResponseWriter, req *http.Request) {
			names, _ := self.db.ListCollections()
			httputil.RespondJSON(w, util.NewStatus(self.db.GetBackend().String(), names...))
		})

	router.Get(`/api/schema`,
		func(w http.ResponseWriter, req *http.Request) {
			if names, err := self.db.ListCollections(); err == nil {
				httputil.RespondJSON(w, names)
			} else {
				httputil.RespondJSON(w, err)
			}
		})

	router.Get(`/api/schema/:collection`,
		func(w http.ResponseWriter, req *http.Request) {
			name := vestigo.Param(req, `collection`)

			if collection, err := self.db.GetCollection(name); err == nil {
				httputil.RespondJSON(w, map[string]interface{}{
					`collection`: collection,
					`paths`:      DescribePaths(collection),
				})
			} else {
				httputil.RespondJSON(w, err, http.StatusNotFound)
			}
		})

	router.Post(`/api/collections/:collection/validate`,
		func(w http.ResponseWriter, req *http.Request) {
			if model, ok := self.model(w, req); ok {
				var data map[string]interface{}

				if err := httputil.ParseJSON(req.Body, &data); err == nil {
					if record, err := model.Validate(req.Context(), data); err == nil {
						httputil.RespondJSON(w, record.Map(model.GetCollection().GetIdentityFieldName()))
					} else {
						respondError(w, err)
					}
				} else {
					httputil.RespondJSON(w, err, http.StatusBadRequest)
				}
			}
		})

	router.Post(`/api/collections/:collection/records`,
		func(w http.ResponseWriter, req *http.Request) {
			if model, ok := self.model(w, req); ok {
				var data map[string]interface{}

				if err := httputil.ParseJSON(req.Body, &data); err == nil {
					if record, err := model.Create(req.Context(), data); err == nil {
						httputil.RespondJSON(w, record.Map(model.GetCollection().GetIdentityFieldName()), http.StatusCreated)
					} else {
						respondError(w, err)
					}
				} else {
					httputil.RespondJSON(w, err, http.StatusBadRequest)
				}
			}
		})

	router.Get(`/api/collections/:collection/records/:id`,
		func(w http.ResponseWriter, req *http.Request) {
			var fields []string
			name := vestigo.Param(req, `collection`)

			if v := httputil.Q(req, `fields`); v != `` {
				fields = strings.Split(v, `,`)
			}

			if record, err := self.db.Retrieve(req.Context(), name, vestigo.Param(req, `id`), fields...); err == nil {
				httputil.RespondJSON(w, record.Map())
			} else {
				respondError(w, err)
			}
		})

	router.Get(`/api/collections/:collection/where/*urlquery`,
		func(w http.ResponseWriter, req *http.Request) {
			name := vestigo.Param(req, `collection`)
			query := vestigo.Param(req, `_name`)

			limit := int(httputil.QInt(req, `limit`, int64(DefaultResultLimit)))
			offset := int(httputil.QInt(req, `offset`))

			if f, err := filter.Parse(query); err == nil {
				f.Limit = limit
				f.Offset = offset

				if v := httputil.Q(req, `sort`); v != `` {
					f.Sort = strings.Split(v, `,`)
				}

				if v := httputil.Q(req, `fields`); v != `` {
					f.Fields = strings.Split(v, `,`)
				}

				if recordset, err := self.db.Find(req.Context(), name, f); err == nil {
					httputil.RespondJSON(w, recordset.Maps())
				} else {
					respondError(w, err)
				}
			} else {
				httputil.RespondJSON(w, err, http.StatusBadRequest)
			}
		})
}

func (self *Server) model(w http.ResponseWriter, req *http.Request) (*mapper.Model, bool) {
	name := vestigo.Param(req, `collection`)

	if model, ok := self.db.Model(name); ok {
		return model, true
	}

	httputil.RespondJSON(w, fmt.Errorf("collection %q is not attached", name), http.StatusNotFound)
	return nil, false
}

// Describe the existence checking configured for every reference path of the collection.
func DescribePaths(collection *dal.Collection) []PathDescription {
	paths := make([]PathDescription, 0)

	for _, sp := range collection.EachPath() {
		if !sp.Field.IsReference() {
			continue
		}

		config, enabled := exists.ConfigOf(sp.Field)

		paths = append(paths, PathDescription{
			Path:    sp.Path,
			Ref:     sp.Field.GetRef(),
			Exists:  enabled,
			Refresh: config.Refresh,
			Default: config.Default,
			Select:  config.Select,
			Match:   config.Match.String(),
			Options: config.Options,
			Message: config.Message,
		})
	}

	return paths
}

func respondError(w http.ResponseWriter, err error) {
	if verr, ok := err.(*dal.ValidationError); ok {
		httputil.RespondJSON(w, map[string]interface{}{
			`error`:      verr.Error(),
			`collection`: verr.Collection,
			`errors`:     verr.Errors,
		}, http.StatusUnprocessableEntity)
	} else if dal.IsNotExistError(err) || dal.IsCollectionNotFoundErr(err) {
		httputil.RespondJSON(w, err, http.StatusNotFound)
	} else {
		httputil.RespondJSON(w, err, http.StatusInternalServerError)
	}
}
