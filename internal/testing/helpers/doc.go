// # JWT Helpers
//
// Mint tokens for test members:
//
//	tokens := helpers.NewJWTHelper(t)
//	router := newRouter(tokens.Service(), ...)
//
// # Request Helpers
//
//	rr := helpers.NewRequest(t, http.MethodPost, "/v1/rosters/"+id+"/join").
//	    WithAuth(tokens, member).
//	    Do(router)
//	helpers.AssertStatus(t, rr, http.StatusOK)
//
// # Assertion Helpers
//
//	helpers.AssertProblemDetails(t, rr, http.StatusConflict, model.ErrCodeAlreadyJoined)
//	helpers.AssertValidationError(t, rr, "name")
package helpers
