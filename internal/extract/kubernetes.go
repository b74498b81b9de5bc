package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/archlens/archlens/api/schemas"
)

// k8sRecognizedKinds gates CanHandle: plain YAML files that are not
// Kubernetes manifests are declined so another extractor (or none) can own
// them.
var k8sRecognizedKinds = map[string]bool{
	"Deployment": true, "Service": true, "ConfigMap": true, "Secret": true,
	"Pod": true, "StatefulSet": true, "DaemonSet": true, "Job": true,
	"CronJob": true, "Ingress": true, "Namespace": true,
	"PersistentVolume": true, "PersistentVolumeClaim": true,
	"ServiceAccount": true, "Role": true, "RoleBinding": true,
	"ClusterRole": true, "ClusterRoleBinding": true, "NetworkPolicy": true,
}

var k8sKindMapping = map[string]schemas.NodeKind{
	"Deployment":            schemas.NodeService,
	"Service":               schemas.NodeService,
	"Pod":                   schemas.NodeContainer,
	"StatefulSet":           schemas.NodeService,
	"DaemonSet":             schemas.NodeService,
	"Job":                   schemas.NodeService,
	"CronJob":               schemas.NodeService,
	"ConfigMap":             schemas.NodeInfraResource,
	"Secret":                schemas.NodeInfraResource,
	"Ingress":               schemas.NodeInfraResource,
	"PersistentVolume":      schemas.NodeInfraResource,
	"PersistentVolumeClaim": schemas.NodeDatabase,
	"Namespace":             schemas.NodeInfraResource,
	"ServiceAccount":        schemas.NodeInfraResource,
	"Role":                  schemas.NodeInfraResource,
	"ClusterRole":           schemas.NodeInfraResource,
}

// KubernetesExtractor parses multi-document YAML manifests. Deployments
// additionally yield container nodes (one per pod-template container) wired
// with builds edges. Service selectors yield a connects_to edge against the
// namespace-prefixed deployment key "k8s:deployment:<ns>/" — the target
// carries no deployment name, so the edge almost always fails referential
// integrity and is dropped by the orchestrator. Preserved as documented
// degraded behavior until the selector-to-deployment resolution is built.
type KubernetesExtractor struct {
	log *zap.Logger
}

func NewKubernetesExtractor(logger *zap.Logger) *KubernetesExtractor {
	return &KubernetesExtractor{log: logger.Named("extract.kubernetes")}
}

func (e *KubernetesExtractor) Name() string { return "kubernetes" }

// CanHandle peeks at YAML content and accepts only files containing at
// least one document with a recognized Kubernetes kind.
func (e *KubernetesExtractor) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	for _, doc := range e.decodeAll(path) {
		if kind, ok := doc["kind"].(string); ok && k8sRecognizedKinds[kind] {
			return true
		}
	}
	return false
}

func (e *KubernetesExtractor) Extract(path string) ([]schemas.Node, []schemas.Edge) {
	var nodes []schemas.Node
	var edges []schemas.Edge

	for _, doc := range e.decodeAll(path) {
		kind, _ := doc["kind"].(string)
		if kind == "" {
			continue
		}
		meta, _ := doc["metadata"].(map[string]any)
		name := stringOr(meta, "name", "unknown")
		namespace := stringOr(meta, "namespace", "default")
		nodeID := fmt.Sprintf("k8s:%s:%s", strings.ToLower(kind), name)

		nodes = append(nodes, e.buildNode(kind, name, namespace, doc, path))

		spec, _ := doc["spec"].(map[string]any)

		if kind == "Deployment" {
			containerNodes, buildEdges := e.podContainers(nodeID, name, namespace, spec)
			nodes = append(nodes, containerNodes...)
			edges = append(edges, buildEdges...)
		}

		if kind == "Service" {
			if selector, ok := spec["selector"].(map[string]any); ok && len(selector) > 0 {
				edges = append(edges, schemas.Edge{
					Source:   nodeID,
					Target:   fmt.Sprintf("k8s:deployment:%s/", namespace),
					Kind:     schemas.EdgeConnectsTo,
					Metadata: map[string]any{"selector": selector},
				})
			}
		}
	}
	return nodes, edges
}

// decodeAll reads every YAML document in the file, skipping ones that fail
// to decode or are not mappings.
func (e *KubernetesExtractor) decodeAll(path string) []map[string]any {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var docs []map[string]any
	dec := yaml.NewDecoder(f)
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			break
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (e *KubernetesExtractor) buildNode(kind, name, namespace string, doc map[string]any, path string) schemas.Node {
	nodeKind, ok := k8sKindMapping[kind]
	if !ok {
		nodeKind = schemas.NodeInfraResource
	}

	metadata := map[string]any{
		"namespace": namespace,
		"kind":      kind,
		"manifest":  path,
	}
	spec, _ := doc["spec"].(map[string]any)

	switch kind {
	case "Service":
		metadata["service_type"] = stringOr(spec, "type", "ClusterIP")
		var ports []any
		for _, p := range listOf(spec, "ports") {
			if pm, ok := p.(map[string]any); ok {
				if port, ok := pm["port"]; ok {
					ports = append(ports, port)
				}
			}
		}
		metadata["ports"] = ports
	case "Deployment":
		if replicas, ok := spec["replicas"]; ok {
			metadata["replicas"] = replicas
		}
	case "ConfigMap", "Secret":
		// data and type live at the document root, not under spec
		if kind == "Secret" {
			metadata["type"] = stringOr(doc, "type", "Opaque")
		}
		var keys []string
		if data, ok := doc["data"].(map[string]any); ok {
			for k := range data {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		metadata["data_keys"] = keys
	}

	return schemas.Node{
		ID:       fmt.Sprintf("k8s:%s:%s", strings.ToLower(kind), name),
		Name:     name,
		Kind:     nodeKind,
		Metadata: metadata,
	}
}

// podContainers extracts the pod template's containers from a Deployment
// spec, each linked from the deployment with a builds edge.
func (e *KubernetesExtractor) podContainers(deployID, deployName, namespace string, spec map[string]any) ([]schemas.Node, []schemas.Edge) {
	template, _ := spec["template"].(map[string]any)
	podSpec, _ := template["spec"].(map[string]any)

	var nodes []schemas.Node
	var edges []schemas.Edge
	for _, c := range listOf(podSpec, "containers") {
		container, ok := c.(map[string]any)
		if !ok {
			continue
		}
		containerName := stringOr(container, "name", "unknown")
		containerID := fmt.Sprintf("k8s:container:%s/%s/%s", namespace, deployName, containerName)

		var ports []any
		for _, p := range listOf(container, "ports") {
			if pm, ok := p.(map[string]any); ok {
				if cp, ok := pm["containerPort"]; ok {
					ports = append(ports, cp)
				}
			}
		}
		var envNames []string
		for _, ev := range listOf(container, "env") {
			if em, ok := ev.(map[string]any); ok {
				if n, ok := em["name"].(string); ok {
					envNames = append(envNames, n)
				}
			}
		}

		nodes = append(nodes, schemas.Node{
			ID:   containerID,
			Name: containerName,
			Kind: schemas.NodeContainer,
			Metadata: map[string]any{
				"image":     stringOr(container, "image", ""),
				"ports":     ports,
				"env":       envNames,
				"namespace": namespace,
				"parent":    deployName,
			},
		})
		edges = append(edges, schemas.Edge{
			Source:   deployID,
			Target:   containerID,
			Kind:     schemas.EdgeBuilds,
			Metadata: map[string]any{},
		})
	}
	return nodes, edges
}

func stringOr(m map[string]any, key, fallback string) string {
	if m != nil {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func listOf(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	list, _ := m[key].([]any)
	return list
}
