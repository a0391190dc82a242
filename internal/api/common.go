package api

import (
	"net/http"
	"strings"

	"outreach-desk/internal/nurture"
	"outreach-desk/internal/snapshot"
	"outreach-desk/internal/tabular"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EventPublisher receives dashboard events. *ws.Hub satisfies it.
type EventPublisher interface {
	BroadcastEvent(eventType string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) BroadcastEvent(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

var errNoUpload = errors.New("api: no file uploaded")

// uploadError is a file that arrived but could not be parsed as CSV or xlsx.
type uploadError struct {
	Field    string
	Filename string
	Err      error
}

func (e *uploadError) Error() string {
	return "could not parse " + e.Field + " upload " + e.Filename + ": " + e.Err.Error()
}

func (e *uploadError) Unwrap() error { return e.Err }

func statusFor(err error) int {
	var unreadable *uploadError
	switch {
	case errors.As(err, &unreadable):
		return http.StatusBadRequest
	case errors.Is(err, tabular.ErrMissingColumn),
		errors.Is(err, nurture.ErrNoTemplates),
		errors.Is(err, nurture.ErrUnknownTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, nurture.ErrSessionNotFound),
		errors.Is(err, snapshot.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, nurture.ErrSessionCommitted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Internal failures are logged and
// their detail is kept out of the response.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	var missing *tabular.MissingColumnError
	if errors.As(err, &missing) {
		c.JSON(status, gin.H{"error": missing.Error()})
		return
	}
	c.JSON(status, gin.H{"error": errors.Cause(err).Error(), "detail": err.Error()})
}

// readUpload parses the multipart file in field as CSV or xlsx. An absent
// file yields errNoUpload, one that does not parse an *uploadError.
func readUpload(c *gin.Context, field string) (*tabular.Table, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, errNoUpload
	}

	f, err := header.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "api: failed to open upload %s", header.Filename)
	}
	defer f.Close()

	table, err := tabular.Read(header.Filename, f)
	if err != nil {
		return nil, &uploadError{Field: field, Filename: header.Filename, Err: err}
	}
	return table, nil
}

// respondUpload answers a readUpload failure: required when the file is
// absent, the parse error otherwise.
func respondUpload(c *gin.Context, logger *logrus.Logger, err error, required string) {
	if errors.Is(err, errNoUpload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": required})
		return
	}
	respondError(c, logger, err)
}

// formFlag reads a checkbox-style form value: 1, t, true, y, yes or on in
// any case. Anything else, including an absent field, is false.
func formFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}
