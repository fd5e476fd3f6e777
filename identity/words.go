package identity

import "strings"

// Word lists for semantic id allocation. The three lists are disjoint so a
// generated id always reads adjective-color-animal. Kept as whitespace
// separated blocks; split once at init.

var adjectiveWords = strings.Fields(`
brave calm eager fancy gentle happy jolly kind lively merry noble proud
quick quiet rapid sunny swift tender vivid witty bold bright clever daring
earnest fierce glad humble keen lucky mellow nimble patient plucky polite
sincere smooth sturdy subtle tough wise zany agile alert ample artful
astute avid balmy bashful blissful breezy brisk bubbly candid carefree
cheerful chipper content cozy crisp curious dainty dapper dashing deft
devout dreamy dutiful elated fearless festive fleet fluent fond frank
free fresh friendly frisky gallant genial giddy graceful gracious grand
hardy hearty heroic honest hopeful humane jaunty jovial joyful jubilant
just lavish lean limber lithe loyal lucid luminous magnetic majestic
mighty mindful modest neat nifty nimblefooted peppy perky placid playful
pleasant poised prime pristine pure quirky radiant refined regal robust
rosy rugged serene sharp shiny shrewd silent sleek slick smart snappy
snug soulful sparkling spirited spry stable stalwart staunch steady stoic
stout sublime supreme sweet swifty tactful tame thankful thorough thrifty
tidy tranquil trusty upbeat valiant vast vibrant vigilant vital vivacious
warm watchful wholesome willing winsome worthy youthful zealous zesty
ardent artless blithe bonny buoyant cordial courtly crafty debonair diligent
eloquent fabled famed fervent gleaming gleeful glowing heady intrepid
keeneyed lofty lustrous mirthful peerless pensive perceptive persistent
piquant prudent punctual quaint resolute sage saucy savvy selfless sensible
spotless sprightly steadfast stellar stunning suave svelte temperate
tenacious tireless unruffled urbane venerable veracious vigorous whimsical
winning zippy able absolute abundant adept admirable adored adroit
adventurous affable agreeable airy ambitious amiable amicable amused
animated appreciative apt arcane assured attentive august authentic awake
aware balanced beaming beloved benevolent benign blazing blessed boundless
bountiful brainy brawny brilliant budding bustling capable casual charming
chatty chic chirpy civil classic classy clean clear comely composed
confident considerate constant courageous creative cultured cunning
dazzling decent decisive dedicated deep defiant delightful dependable
determined devoted dignified direct discreet distinct dynamic easygoing
ecstatic effortless elegant eminent enchanted endless enduring energetic
engaging epic esteemed ethereal even exact exotic expert exuberant fair
faithful famous fearsome feisty fine firm fit flawless flowing fluffy
fortunate frugal generous gifted glorious grateful groovy gutsy handy
harmonious healthy helpful hushed idyllic immense inspired intent
intuitive inventive kindly knowing lasting learned legendary likable
limitless literate logical lovable loving lucent magical masterful mature
measured meek merciful meticulous mild motivated musical mystic natural
nice noted novel nurturing observant open optimistic orderly organic
original outgoing passionate peaceful persuasive plain pleased plush
poetic polished positive powerful practical precise premier prepared
primal principled prized profound prompt proper prosperous rare rational
ready reliable renowned resilient resourceful respectful rested righteous
ripe roomy sane sassy scholarly secure seemly select settled simple
skillful smiling sociable soft solid sound splendid spontaneous stately
still striking strong studious superb supple sure swank talented tasteful
tempered terrific thoughtful trim true trusted truthful unique united
uplifted upright upstanding victorious virtuous welcoming wily wondrous
zen
`)

var colorWords = strings.Fields(`
amber azure beige bronze burgundy cerulean charcoal cherry chestnut chrome
cinnamon cobalt copper coral cream crimson cyan denim ebony emerald fawn
flax fuchsia garnet gold graphite gray green hazel honey indigo ivory
jade jet khaki lavender lemon lilac lime magenta mahogany maroon mauve
mint mocha navy ochre olive onyx opal orange orchid pearl periwinkle
pewter pink platinum plum quartz rose ruby russet rust saffron salmon
sand sapphire scarlet sepia sienna silver slate smoke snow sorrel steel
tan tangerine taupe teal terracotta topaz turquoise ultramarine umber
vanilla vermilion violet walnut wheat white wine yellow alabaster amaranth
amethyst apricot aqua aquamarine auburn basil berry birch blush brick
bubblegum butter butterscotch cadet camel canary caramel carmine carnation
cedar celadon celeste champagne chartreuse chiffon citron claret clay
cloud clover cocoa coffee cornflower cranberry custard daffodil dandelion
dove dusk dust eggplant eggshell fern fire flame flamingo fog forest
fossil frost ginger glacier grape gunmetal heather hibiscus iris ivy
jasmine juniper lagoon latte lead lichen linen lotus malachite mandarin
mango marigold marine meadow melon mercury midnight mist moss mulberry
mustard nectar nickel night oat obsidian ocean oyster papaya paprika
parchment pea peach peacock pecan peony pepper persimmon pine pistachio
pomegranate poppy porcelain prune pumpkin raisin raspberry raven redwood
reef rosewood rouge sandstone seafoam seaweed shadow shamrock shell sky
smalt sphene spice spruce starlight stone storm straw sulfur sunflower
sunset thistle tide tin titanium tomato tulip twilight velvet verdigris
viridian wisteria wolfram zinc almond aluminum apple avocado bamboo banana
barley basalt beet bisque bistre blackberry bluebell blueberry bone
bordeaux boysenberry bramble brass brandy buff burlap buttercream
buttercup cabernet cactus camellia candy cantaloupe capri carbon carob
cashew cassis cayenne cement cerise chablis chalk chambray chili chive
cider cinder citrine clementine coconut cognac concrete cordovan corn
cotton cypress damson date dew diamond dijon dill driftwood earth ecru
elderberry espresso evergreen fig fjord flannel flint fondant fudge
galaxy gardenia geranium gooseberry gorse granite grapefruit grass gravel
guava hay hazelnut heath heliotrope hemlock hemp henna hickory holly
honeydew hyacinth ice ink iron jacaranda jasper jonquil kale kelp kohl
laurel lentil lily limestone macadamia madder magnolia maize mallow maple
marble marsala mesa mimosa molasses moonlight moonstone mushroom myrtle
nectarine nettle nimbus nougat nutmeg oak oatmeal palm patina peanut peat
pebble peridot pineapple pinot plaster pollen pomelo primrose quince
rhubarb rice rosemary sandalwood sangria sassafras satin seashell sequoia
shale sherry silt snowdrop soapstone sorbet soot spearmint squash
strawberry sumac syrup tamarind tawny teak thyme timber toffee tourmaline
truffle tundra turmeric vellum verbena vine wasabi watermelon willow
wintergreen wool yam zircon
`)

var animalWords = strings.Fields(`
otter heron falcon badger lynx marten osprey plover swallow wren alpaca
antelope armadillo avocet beaver bison bittern boar bobcat bongo bunting
caracal caribou cheetah chickadee chinchilla chipmunk cormorant cougar
coyote crane cricket curlew deer dingo dipper dolphin donkey dormouse
duck dunlin eagle egret elk ermine ferret finch firefly fox gazelle gecko
gibbon giraffe gnu godwit goldfinch goose gopher goshawk grebe grouse
gull hamster hare harrier hawk hedgehog hippo hoopoe hornbill horse hummingbird
ibex ibis iguana impala jackal jackdaw jaguar jay kestrel kingfisher
kite kiwi koala kudu lapwing lark lemming lemur leopard linnet lion llama
loon lorikeet macaw magpie mallard manatee mandrill marmoset marmot meerkat
merlin mink minnow mole mongoose moose moth mouflon mouse muskrat narwhal
newt nightingale nuthatch ocelot okapi oriole oryx ostrich owl ox panda
pangolin panther parrot partridge peccary pelican penguin petrel pheasant
pigeon pika pipit pony porcupine puffin puma quail quokka rabbit raccoon
rail ram redpoll redstart reindeer rhea robin roebuck rook sable salamander
sandpiper seal serval shearwater shrew shrike siskin skink skylark sloth
snipe sparrow squirrel starling stoat stork swan tamarin tanager tapir
tarsier tern thrush tiger titmouse toad tortoise toucan turaco turnstone
turtle vicuna vole vulture wallaby walrus wapiti warbler waxwing weasel
whale whimbrel wigeon wildcat wolverine wombat woodcock woodpecker yak
zebra bushbaby capybara cassowary civet coati colobus dikdik dugong echidna
eland gannet gerbil gharial hartebeest hyrax jerboa kinkajou klipspringer
kookaburra lionfish loris lungfish mara margay markhor mudskipper muntjac
nene nilgai numbat nutria nyala olingo onager oropendola pademelon pintail
pochard polecat potoroo pronghorn ptarmigan pudu quoll ratel redshank
reedbuck rhebok saiga sambar seriema serow sitatunga springbok steenbok
sunbird takin tahr topi tragopan tuatara urial waterbuck weka wisent
woodchuck xerus zebu addax agouti albatross anole anteater auk barbet
barracuda bass bat bee beetle bellbird beluga bighorn bilby binturong
blackbird blackbuck bluebird boa bobolink bonobo bowerbird bream brolga
buffalo bulbul bullfinch bumblebee bustard butterfly buzzard caiman
chamois cockatoo cod condor corella cottontail cowbird crab crayfish
crossbill crow cuckoo cuscus cuttlefish damselfly darter dassie dhole
dotterel dragonfly drongo duiker dunnart eel eider emu fantail fieldfare
flycatcher fossa francolin frog fulmar galago gallinule gar garganey gaur
genet gentoo glowworm goat goby goldcrest goral gorilla grackle grayling
greenfinch greenshank guanaco gudgeon guillemot gurnard haddock halibut
herring hoatzin hornet hyena indri jacana jackrabbit jaeger javelina
jellyfish junco kakapo kangaroo katydid kea killdeer kingbird kinglet kob
koel krill ladybird lamprey langur lechwe limpet lizard lobster locust
lyrebird mackerel manakin mantis marlin martin mayfly mockingbird monal
moorhen motmot mudpuppy mullet muskox mynah nautilus nighthawk nightjar
octopus opossum orangutan orca ouzel ovenbird paca parakeet peafowl perch
phalarope phoebe pickerel piranha platypus porpoise possum potto prawn
python quetzal razorbill redwing roadrunner roller rosefinch ruff
sandgrouse sapsucker scallop scaup scoter seahorse sheldrake shoveler
sidewinder sifaka skua smew snail snapper sora spoonbill sprat springhare
squid stickleback stilt stingray stonechat sturgeon sunfish swiftlet
tadpole takahe tanuki tarpon tenrec tetra thornbill tinamou towhee
treecreeper trogon trout tuna turbot turkey uakari urchin veery vireo
viper wagtail wallaroo warthog weevil whydah willet wolf wrasse zorilla
`)
