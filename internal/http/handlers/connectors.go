package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/http/viewmodels"
	"github.com/arena2036-x/emc/internal/wizard"
)

// HandleConnectors returns the connector table from the current snapshot.
// A stale snapshot is still served; the notice tells the client why.
func (h *Handlers) HandleConnectors(c *echo.Context) error {
	snap := h.Store.Snapshot()
	return Respond(c, http.StatusOK, viewmodels.NewConnectorList(snap.Connectors, snap.ConnectorsErr, snap.RefreshedAt))
}

// HandleConnectorsRefresh forces an immediate re-fetch ahead of the poll
// cycle and returns the new table.
func (h *Handlers) HandleConnectorsRefresh(c *echo.Context) error {
	if err := h.Store.Refresh(c.Request().Context()); err != nil {
		return h.RespondError(c, err)
	}
	snap := h.Store.Snapshot()
	return Respond(c, http.StatusOK, viewmodels.NewConnectorList(snap.Connectors, snap.ConnectorsErr, snap.RefreshedAt))
}

// HandleConnectorShow serves the detail view. The snapshot is tried first;
// a miss falls through to a live backend read so a connector created moments
// ago is still addressable.
func (h *Handlers) HandleConnectorShow(c *echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return BadRequest(c, err.Error())
	}

	connector, ok := h.Store.Find(id)
	if !ok {
		connector, err = h.Gateway.GetConnector(c.Request().Context(), id)
		if err != nil {
			return h.RespondError(c, err)
		}
	}
	return Respond(c, http.StatusOK, viewmodels.NewConnectorDetail(connector))
}

// HandleConnectorYAML renders the connector's masked configuration document.
func (h *Handlers) HandleConnectorYAML(c *echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return BadRequest(c, err.Error())
	}

	connector, ok := h.Store.Find(id)
	if !ok {
		connector, err = h.Gateway.GetConnector(c.Request().Context(), id)
		if err != nil {
			return h.RespondError(c, err)
		}
	}

	doc, err := wizard.ConnectorYAML(connector)
	if err != nil {
		return err
	}
	return Respond(c, http.StatusOK, map[string]string{"yaml": doc})
}

// HandleConnectorUpdate applies a partial update and returns the refreshed
// record.
func (h *Handlers) HandleConnectorUpdate(c *echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req edc.UpdateConnectorRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c, "invalid update payload")
	}

	updated, err := h.Store.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.RespondError(c, err)
	}
	return Respond(c, http.StatusOK, viewmodels.NewConnectorDetail(updated))
}

// HandleConnectorDelete removes a connector. Deleting one that is already
// gone succeeds; the snapshot converges either way.
func (h *Handlers) HandleConnectorDelete(c *echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return BadRequest(c, err.Error())
	}

	ref := edc.ConnectorRef{ID: id}
	if connector, ok := h.Store.Find(id); ok {
		ref.Name = connector.Name
	}

	if err := h.Store.Delete(c.Request().Context(), ref); err != nil {
		return h.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
