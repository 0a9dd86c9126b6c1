package typesupport

import "strings"

// NormalizeTopic drops a single leading slash unless the topic is just
// "/". Fast-codec matching and fallback-bus keys use the normalized form.
func NormalizeTopic(topic string) string {
	if len(topic) > 1 && strings.HasPrefix(topic, "/") {
		return topic[1:]
	}
	return topic
}

// ServiceRequestTopic builds the request topic for a service name,
// preserving a leading slash when the service name carries one.
func ServiceRequestTopic(service string) string {
	return serviceTopic("rq", service)
}

// ServiceResponseTopic builds the response topic for a service name.
func ServiceResponseTopic(service string) string {
	return serviceTopic("rr", service)
}

func serviceTopic(prefix, service string) string {
	if strings.HasPrefix(service, "/") {
		return prefix + service
	}
	return prefix + "/" + service
}
