/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package drivers

// WebDAV download policies surfaced to clients.
const (
	PolicyNativeProxy = "native_proxy"
	PolicyUseProxyUrl = "use_proxy_url"
	Policy302Redirect = "302_redirect"
)

// SupportedPolicies computes the WebDAV policy view for one config.
// native_proxy is always available; use_proxy_url needs a configured proxy
// base; 302_redirect needs the driver to serve direct links.
func SupportedPolicies(caps Capabilities, urlProxy string) []string {
	policies := []string{PolicyNativeProxy}
	if urlProxy != "" {
		policies = append(policies, PolicyUseProxyUrl)
	}
	if caps.DirectLink {
		policies = append(policies, Policy302Redirect)
	}
	return policies
}
