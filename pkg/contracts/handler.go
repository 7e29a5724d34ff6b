package contracts

import "github.com/julienschmidt/httprouter"

// Handler is anything that mounts its routes on a router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
