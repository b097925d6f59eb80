// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package signaling

import "net/http"

// ServiceCallResult is the outcome of a signaling call, expressed as the
// HTTP status codes the client acts upon.
type ServiceCallResult uint32

// ServiceCallResult values. Anything else maps to ServiceCallResultUnknown.
const (
	ServiceCallResultUnknown                  ServiceCallResult = 0
	ServiceCallResultOK                       ServiceCallResult = http.StatusOK
	ServiceCallResultUnauthorized             ServiceCallResult = http.StatusUnauthorized
	ServiceCallResultForbidden                ServiceCallResult = http.StatusForbidden
	ServiceCallResultNotFound                 ServiceCallResult = http.StatusNotFound
	ServiceCallResultNotAcceptable            ServiceCallResult = http.StatusNotAcceptable
	ServiceCallResultRequestTimeout           ServiceCallResult = http.StatusRequestTimeout
	ServiceCallResultResourceDeleted          ServiceCallResult = http.StatusGone
	ServiceCallResultInternalServerError      ServiceCallResult = http.StatusInternalServerError
	ServiceCallResultNotImplemented           ServiceCallResult = http.StatusNotImplemented
	ServiceCallResultGatewayTimeout           ServiceCallResult = http.StatusGatewayTimeout
	ServiceCallResultNetworkReadTimeout       ServiceCallResult = 598
	ServiceCallResultNetworkConnectionTimeout ServiceCallResult = 599
)

// ServiceCallResultFromHTTPStatus maps an HTTP status to the result the
// client acts upon.
func ServiceCallResultFromHTTPStatus(status int) ServiceCallResult {
	switch result := ServiceCallResult(status); result { //nolint:gosec
	case ServiceCallResultOK,
		ServiceCallResultNotAcceptable,
		ServiceCallResultNotFound,
		ServiceCallResultForbidden,
		ServiceCallResultResourceDeleted,
		ServiceCallResultUnauthorized,
		ServiceCallResultNotImplemented,
		ServiceCallResultInternalServerError,
		ServiceCallResultRequestTimeout,
		ServiceCallResultGatewayTimeout,
		ServiceCallResultNetworkReadTimeout,
		ServiceCallResultNetworkConnectionTimeout:
		return result
	default:
		return ServiceCallResultUnknown
	}
}
