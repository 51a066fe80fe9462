package community

import "gopkg.in/yaml.v3"

func (p *Partition) yamlNode() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range p.ids {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		p.sets[id].Each(func(f string) {
			seq.Content = append(seq.Content, strNode(f))
		})
		n.Content = append(n.Content, strNode(id), seq)
	}
	return n
}

// strNode builds a plain string scalar, quoted when YAML would otherwise
// read it as another type.
func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
