package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

const k8sFixture = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: checkout
  namespace: shop
spec:
  replicas: 3
  template:
    spec:
      containers:
        - name: app
          image: registry.local/checkout:1.4
          ports:
            - containerPort: 8080
          env:
            - name: DB_HOST
              value: postgres
        - name: sidecar
          image: envoyproxy/envoy:v1.30
---
apiVersion: v1
kind: Service
metadata:
  name: checkout-svc
  namespace: shop
spec:
  type: LoadBalancer
  selector:
    app: checkout
  ports:
    - port: 443
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: checkout-config
data:
  LOG_LEVEL: debug
  FEATURE_X: "on"
`

func TestKubernetesExtractorManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deploy.yaml", k8sFixture)

	ex := NewKubernetesExtractor(zap.NewNop())
	require.True(t, ex.CanHandle(path))

	nodes, edges := ex.Extract(path)

	deploy := findNode(t, nodes, "k8s:deployment:checkout")
	assert.Equal(t, schemas.NodeService, deploy.Kind)
	assert.Equal(t, "shop", deploy.Metadata["namespace"])
	assert.Equal(t, 3, deploy.Metadata["replicas"])

	app := findNode(t, nodes, "k8s:container:shop/checkout/app")
	assert.Equal(t, schemas.NodeContainer, app.Kind)
	assert.Equal(t, "registry.local/checkout:1.4", app.Metadata["image"])
	assert.Equal(t, []string{"DB_HOST"}, app.Metadata["env"])

	findNode(t, nodes, "k8s:container:shop/checkout/sidecar")

	svc := findNode(t, nodes, "k8s:service:checkout-svc")
	assert.Equal(t, schemas.NodeService, svc.Kind)
	assert.Equal(t, "LoadBalancer", svc.Metadata["service_type"])

	cm := findNode(t, nodes, "k8s:configmap:checkout-config")
	assert.Equal(t, schemas.NodeInfraResource, cm.Kind)
	assert.Equal(t, []string{"FEATURE_X", "LOG_LEVEL"}, cm.Metadata["data_keys"])

	assert.True(t, hasEdge(edges, "k8s:deployment:checkout", "k8s:container:shop/checkout/app", schemas.EdgeBuilds))
	assert.True(t, hasEdge(edges, "k8s:deployment:checkout", "k8s:container:shop/checkout/sidecar", schemas.EdgeBuilds))

	// Selector edges target a namespace-prefixed key with no deployment
	// name; they are emitted here and dropped later as dangling.
	assert.True(t, hasEdge(edges, "k8s:service:checkout-svc", "k8s:deployment:shop/", schemas.EdgeConnectsTo))
}

func TestKubernetesExtractorDeclinesPlainYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "values.yaml", "image:\n  tag: latest\n")

	ex := NewKubernetesExtractor(zap.NewNop())
	assert.False(t, ex.CanHandle(path))
}

func TestKubernetesExtractorMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "kind: Deployment\nmetadata: [not a mapping\n")

	ex := NewKubernetesExtractor(zap.NewNop())
	nodes, edges := ex.Extract(path)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}
