// Error responses for the admin API.

package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/httputil"
)

// stubRef is a stub addressed either by index or by uuid.
type stubRef struct {
	index int
	uuid  string
}

// parseStubRef treats an all-digit id as an index and anything else as a uuid.
func parseStubRef(id string) stubRef {
	if n, err := strconv.Atoi(id); err == nil && n >= 0 && isDigits(id) {
		return stubRef{index: n}
	}
	return stubRef{index: -1, uuid: id}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func (r stubRef) byUUID() bool {
	return r.uuid != ""
}

func (r stubRef) String() string {
	if r.byUUID() {
		return "uuid#" + r.uuid
	}
	return "index#" + strconv.Itoa(r.index)
}

// missingStubMessage names a stub that does not exist and the operation that
// needed it.
func missingStubMessage(ref stubRef, op string) string {
	return fmt.Sprintf("Stub request %s does not exist, cannot %s", ref, op)
}

// emptyPayloadMessage describes a request that needed a body and had none.
func emptyPayloadMessage(r *http.Request) string {
	return fmt.Sprintf("%s request on URI %s was empty", r.Method, r.URL.Path)
}

// writeStoreError maps repository errors onto responses. Lookup failures are
// client errors.
func (a *API) writeStoreError(w http.ResponseWriter, err error, ref stubRef, op string) {
	switch {
	case errors.Is(err, storage.ErrIndexOutOfRange), errors.Is(err, storage.ErrUUIDNotFound):
		httputil.WriteBadRequest(w, missingStubMessage(ref, op))
	case errors.Is(err, storage.ErrDuplicateUUID):
		httputil.WriteBadRequest(w, err.Error())
	default:
		a.log.Error("admin operation failed", "operation", op, "stub", ref.String(), "error", err)
		httputil.WriteInternalError(w, err.Error())
	}
}
