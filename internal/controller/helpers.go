// Copyright Contributors to the KubeOpenCode project

package controller

import (
	"fmt"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// labelSelectorFromString parses a comma-separated "k=v,k2=v2" selector
// string (as produced by internal/labels' selector helpers, which build
// them in the form client-go's ListOptions.LabelSelector expects) into a
// client.MatchingLabels usable by the typed controller-runtime client.
func labelSelectorFromString(selector string) (client.MatchingLabels, error) {
	out := client.MatchingLabels{}
	for _, pair := range strings.Split(selector, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid label selector term %q in %q", pair, selector)
		}
		out[kv[0]] = kv[1]
	}
	return out, nil
}

func minutesToDuration(minutes int64) time.Duration {
	return time.Duration(minutes) * time.Minute
}
