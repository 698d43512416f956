package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ClassifyLLMError maps an error from the LLM path to a short headline and a
// longer hint suitable for showing to a user.
func ClassifyLLMError(err error) (short, detail string) {
	if err == nil {
		return "", ""
	}
	msg := strings.ToLower(err.Error())

	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(msg, "connection refused") {
		return "LLM provider unreachable",
			"Cannot connect to the LLM provider. Check that llm.base_url is correct and the service is running."
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return "LLM response timeout",
			"The LLM provider did not respond in time. It may be under load; try again or check the provider status."
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 401:
			return "LLM authentication failed",
				"Invalid API key. Check that llm.api_key is correct for your provider."
		case se.StatusCode == 403:
			return "LLM access denied",
				"Access denied by the LLM provider. The API key may lack permissions or the model may not be on your plan."
		case se.StatusCode == 404:
			return "LLM endpoint not found",
				"LLM endpoint not found. Check that llm.base_url and llm.model are correct."
		case se.StatusCode == 429:
			return "LLM rate limited",
				"Too many requests to the LLM provider. Wait a moment and try again."
		case se.StatusCode >= 500:
			return "LLM provider error",
				fmt.Sprintf("The LLM provider returned a server error (%d). Try again later.", se.StatusCode)
		}
	}

	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "apikey") || strings.Contains(msg, "unauthorized"):
		return "LLM authentication error",
			"API key issue. Check that llm.api_key or LLM_API_KEY is set correctly."
	case strings.Contains(msg, "model") && (strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")):
		return "LLM model not found",
			"The configured model is not available. Check that llm.model is correct and offered by your provider."
	case strings.Contains(msg, "x509") || strings.Contains(msg, "tls") || strings.Contains(msg, "certificate"):
		return "LLM TLS error",
			"TLS error connecting to the LLM provider. Check that llm.base_url uses the right scheme (http or https)."
	case isDNSError(err) || strings.Contains(msg, "no such host"):
		return "LLM host not found",
			"Cannot resolve the LLM provider hostname. Check llm.base_url and your connectivity."
	case strings.Contains(msg, "connect") || strings.Contains(msg, "connection"):
		return "LLM connection error",
			fmt.Sprintf("Connection error: %v. Check your network and llm.base_url.", err)
	}

	return "LLM error", fmt.Sprintf("Error communicating with the LLM: %v", err)
}

// IsRetryableError reports whether an error is likely transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode >= 500
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isDNSError(err error) bool {
	var de *net.DNSError
	return errors.As(err, &de)
}
