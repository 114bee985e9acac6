package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/zofia/auth"
	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/catalog"
	apperrors "github.com/kbukum/zofia/errors"
	"github.com/kbukum/zofia/execution"
	"github.com/kbukum/zofia/observability"
	"github.com/kbukum/zofia/protocol"
	"github.com/kbukum/zofia/store"
)

// Connection is the slice of the protocol client the endpoints read.
type Connection interface {
	State() protocol.State
	Endpoint() string
	LastSentID() int64
	HighestInboundID() int64
}

// Providers bundles everything the endpoints report on.
type Providers struct {
	Service   string
	Version   string
	Client    Connection
	Execution *execution.Coordinator
	Catalog   *catalog.Syncer
	Auth      *auth.Authenticator
	Boards    *store.Store
	// Readiness computes the current board readiness report.
	Readiness func() board.Report
}

// Register mounts the status endpoints on the router.
func Register(r gin.IRouter, p Providers) {
	r.GET("/healthz", Healthz(p))
	r.GET("/status", Status(p))
	if p.Boards != nil {
		r.GET("/boards", ListBoards(p.Boards))
		r.GET("/boards/:id", GetBoard(p.Boards))
	}
}

// Healthz reports service health including the server connection.
// The dashboard stays usable offline, so a missing connection degrades
// health rather than failing it.
func Healthz(p Providers) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(p.Service, p.Version)

		connHealth := observability.Health{
			Name:   "server-connection",
			Status: observability.HealthStatusDegraded,
		}
		if p.Client != nil {
			state := p.Client.State()
			connHealth.Message = state.String()
			if state == protocol.StateConnected {
				connHealth.Status = observability.HealthStatusUp
			}
		} else {
			connHealth.Message = "not configured"
		}
		sh.AddComponent(connHealth)

		c.JSON(http.StatusOK, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}

// Status returns the connection, session, auth, catalog and readiness
// snapshots in one payload.
func Status(p Providers) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"service": p.Service}

		if p.Client != nil {
			payload["connection"] = gin.H{
				"state":            p.Client.State().String(),
				"endpoint":         p.Client.Endpoint(),
				"lastSentId":       p.Client.LastSentID(),
				"highestInboundId": p.Client.HighestInboundID(),
			}
		}
		if p.Execution != nil {
			snap := p.Execution.Snapshot()
			payload["session"] = gin.H{
				"phase":       snap.Phase.String(),
				"outcome":     snap.Outcome.String(),
				"executionId": snap.ExecutionID,
				"pipelineId":  snap.PipelineID,
				"message":     snap.Message,
			}
		}
		if p.Auth != nil {
			snap := p.Auth.Snapshot()
			authInfo := gin.H{
				"authenticated": snap.Authenticated,
				"pending":       snap.Pending,
				"username":      snap.Username,
			}
			if snap.Profile != nil {
				authInfo["profile"] = snap.Profile
			}
			payload["auth"] = authInfo
		}
		if p.Catalog != nil {
			snap := p.Catalog.Snapshot()
			payload["catalog"] = gin.H{
				"pending":    snap.Pending,
				"selectedId": snap.SelectedID,
				"count":      snap.Count,
			}
		}
		if p.Readiness != nil {
			report := p.Readiness()
			payload["readiness"] = gin.H{
				"issueCount": report.IssueCount,
			}
		}

		c.JSON(http.StatusOK, payload)
	}
}

// ListBoards returns id/name/timestamp metadata for every stored board.
func ListBoards(boards *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records := boards.List()
		items := make([]gin.H, 0, len(records))
		for _, r := range records {
			items = append(items, gin.H{
				"id":        r.ID,
				"name":      r.Name,
				"createdAt": r.CreatedAt,
				"updatedAt": r.UpdatedAt,
				"nodes":     len(r.Nodes),
			})
		}
		c.JSON(http.StatusOK, gin.H{"boards": items})
	}
}

// GetBoard returns one stored board in full.
func GetBoard(boards *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := boards.Get(c.Param("id"))
		if err != nil {
			if appErr, ok := apperrors.AsAppError(err); ok {
				c.JSON(appErr.HTTPStatus, appErr.ToResponse())
				return
			}
			c.JSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
			return
		}
		c.JSON(http.StatusOK, record)
	}
}
